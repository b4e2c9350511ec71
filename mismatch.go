package tomlparams

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// MismatchKind tags a Mismatch as either a type disagreement or an
// unrecognized key.
type MismatchKind int

const (
	// TypeMismatch: the overlay value's type disagrees with the defaults'.
	TypeMismatch MismatchKind = iota
	// BadKey: the overlay supplied a key the defaults do not define.
	BadKey
)

// String returns the kind name.
func (k MismatchKind) String() string {
	switch k {
	case TypeMismatch:
		return "TypeMismatch"
	case BadKey:
		return "BadKey"
	default:
		return fmt.Sprintf("MismatchKind(%d)", int(k))
	}
}

// Mismatch records a single discrepancy between the overlay and the
// defaults at one point in the hierarchy. DefaultType and TOMLType are
// only set for TypeMismatch entries; for list values they hold the sorted,
// deduplicated element-type set in [a,b] form.
type Mismatch struct {
	Kind        MismatchKind
	Position    []string
	Key         string
	DefaultType string
	TOMLType    string
}

// String renders the mismatch in the fixed report line format.
func (m Mismatch) String() string {
	level := "at root level"
	if len(m.Position) > 0 {
		level = "at level: " + strings.Join(m.Position, ".")
	}
	if m.Kind == BadKey {
		return fmt.Sprintf("Bad key %s - key: %s", level, m.Key)
	}
	return fmt.Sprintf(
		"Type mismatch %s - key: %s, default_type: %s, toml_type: %s",
		level, m.Key, m.DefaultType, m.TOMLType,
	)
}

// aggregateIssues renders mismatches as a single multi-line report: a
// header, one indented line per mismatch, and a trailing blank line.
func aggregateIssues(mismatches []Mismatch) string {
	var b strings.Builder
	b.WriteString("The following issues were found:\n")
	for _, m := range mismatches {
		b.WriteString(" ")
		b.WriteString(m.String())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

// scalarTypeName maps a value onto the TOML scalar taxonomy used in
// mismatch reports: bool, str, int, float, date, time, datetime. All Go
// integer widths classify as int so programmatic defaults compare equal to
// decoded TOML integers; offset and local datetimes both classify as
// datetime. Sections and lists get the names "section" and "list" for the
// rare paths where they reach a scalar comparison.
func scalarTypeName(v any) string {
	switch v.(type) {
	case bool:
		return "bool"
	case string:
		return "str"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "int"
	case float32, float64:
		return "float"
	case toml.LocalDate:
		return "date"
	case toml.LocalTime:
		return "time"
	case toml.LocalDateTime, time.Time:
		return "datetime"
	case map[string]any:
		return "section"
	case nil:
		return "nil"
	}
	if _, ok := listElements(v); ok {
		return "list"
	}
	return reflect.TypeOf(v).String()
}

// listElements returns the elements of any slice or array value as []any.
// Strings and byte slices are not treated as lists.
func listElements(v any) ([]any, bool) {
	if elems, ok := v.([]any); ok {
		return elems, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, false
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil, false
		}
		elems := make([]any, rv.Len())
		for i := range elems {
			elems[i] = rv.Index(i).Interface()
		}
		return elems, true
	}
	return nil, false
}

// collectionTypeNames returns the sorted, deduplicated set of scalar type
// names present in a list.
func collectionTypeNames(elems []any) []string {
	seen := make(map[string]bool, len(elems))
	for _, e := range elems {
		seen[scalarTypeName(e)] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// renderTypeSet renders a list's element-type set as [a,b].
func renderTypeSet(names []string) string {
	return "[" + strings.Join(names, ",") + "]"
}

// isSubset reports whether every name in sub also appears in super. Both
// slices are sorted type-name sets.
func isSubset(sub, super []string) bool {
	in := make(map[string]bool, len(super))
	for _, s := range super {
		in[s] = true
	}
	for _, s := range sub {
		if !in[s] {
			return false
		}
	}
	return true
}
