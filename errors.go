package tomlparams

import "errors"

// Sentinel errors for the fatal conditions a load can hit. Errors returned
// by New, Reload and SetPath wrap one of these, so callers can classify
// failures with errors.Is without parsing message text.
var (
	// ErrNotFound: the named params file exists in neither the standard
	// nor the user directory, or a defaults file/directory is unreadable.
	ErrNotFound = errors.New("params file not found")

	// ErrReservedPath: a file with a user-reserved basename (user-*, user_*,
	// u-*, u_*) was found in the standard params directory.
	ErrReservedPath = errors.New("path reserved for user params files")

	// ErrBadExtension: a params file name carries an extension other
	// than .toml.
	ErrBadExtension = errors.New("params files must use .toml extension")

	// ErrStructural: an overlay supplied a non-section value where the
	// defaults define a section.
	ErrStructural = errors.New("section expected")

	// ErrBadKey: the overlay contained keys that do not exist in the
	// defaults. Bad keys are fatal under every type-checking policy.
	ErrBadKey = errors.New("bad keys in params file")

	// ErrTypeMismatch: overlay values disagreed with the defaults' types
	// and the type-checking policy is Error.
	ErrTypeMismatch = errors.New("type mismatches in params file")

	// ErrInclude: the reserved "include" key appeared where it is not
	// allowed (in defaults).
	ErrInclude = errors.New(`reserved key "include" not allowed in defaults`)

	// ErrDuplicateKey: two files in a defaults directory define the same
	// top-level key.
	ErrDuplicateKey = errors.New("duplicate key in defaults directory")

	// ErrBadCheckValue: the type-checking environment variable holds a
	// value other than "warn", "error" or "off".
	ErrBadCheckValue = errors.New("invalid type-checking value")

	// ErrKeyPath: a dotted key path did not resolve while getting or
	// setting a parameter.
	ErrKeyPath = errors.New("key path does not resolve")
)

// IssuesError aggregates every mismatch found during a single load, so one
// failed construction reports all problems at once instead of the first.
type IssuesError struct {
	Mismatches []Mismatch
}

// Error renders the issues in the aggregate report format, one mismatch
// line per entry.
func (e *IssuesError) Error() string {
	return aggregateIssues(e.Mismatches)
}

// Is reports ErrBadKey and/or ErrTypeMismatch depending on which kinds of
// mismatch the error carries.
func (e *IssuesError) Is(target error) bool {
	for _, m := range e.Mismatches {
		switch m.Kind {
		case BadKey:
			if target == ErrBadKey {
				return true
			}
		case TypeMismatch:
			if target == ErrTypeMismatch {
				return true
			}
		}
	}
	return false
}
