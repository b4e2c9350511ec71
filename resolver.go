package tomlparams

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
)

// userReservedNames matches basenames that belong exclusively to the user
// params directory.
var userReservedNames = regexp.MustCompile(`(?i)^(u|user)[-_]`)

// isUserReservedPath reports whether the file's basename uses a prefix
// reserved for the user params directory.
func isUserReservedPath(path string) bool {
	return userReservedNames.MatchString(filepath.Base(path))
}

// resolver locates named params files and folds their inclusion chains into
// a single overlay map. It is scoped to one load: the seen set suppresses
// re-reading a path reached twice (self-inclusion, diamond inclusion), and
// filesUsed records every file actually read, most recent first.
type resolver struct {
	standardDir    string
	userDir        string
	preferStandard bool
	logger         *log.Logger
	seen           map[string]bool
	filesUsed      []string
}

func newResolver(standardDir, userDir string, preferStandard bool, logger *log.Logger) *resolver {
	return &resolver{
		standardDir:    standardDir,
		userDir:        userDir,
		preferStandard: preferStandard,
		logger:         logger,
		seen:           map[string]bool{},
	}
}

// resolve loads the named document and returns it with any inclusion chain
// already merged in and the include key removed. The name may carry a .toml
// extension or none at all; any other extension is fatal.
func (r *resolver) resolve(name string) (map[string]any, error) {
	path, err := r.locate(name)
	if err != nil {
		return nil, err
	}
	if r.seen[path] {
		return map[string]any{}, nil
	}

	doc, err := loadTOMLFile(path)
	if err != nil {
		return nil, err
	}
	r.seen[path] = true
	r.filesUsed = append([]string{path}, r.filesUsed...)

	if include, ok := doc[includeKey]; ok {
		merged, err := r.resolveIncludes(path, include)
		if err != nil {
			return nil, err
		}
		selectivelyUpdate(merged, doc)
		delete(merged, includeKey)
		doc = merged
	}
	r.logger.Infof("Parameters set from: %s", path)
	return doc, nil
}

// resolveIncludes folds an include directive (single name or ordered list)
// into one map, later entries winning over earlier ones on conflict.
func (r *resolver) resolveIncludes(path string, include any) (map[string]any, error) {
	switch inc := include.(type) {
	case string:
		return r.resolve(inc)
	case []any:
		merged := map[string]any{}
		for _, entry := range inc {
			name, ok := entry.(string)
			if !ok {
				return nil, fmt.Errorf(
					"include list in %s must contain only file names, got %v", path, entry,
				)
			}
			included, err := r.resolve(name)
			if err != nil {
				return nil, err
			}
			selectivelyUpdate(merged, included)
		}
		return merged, nil
	default:
		return nil, fmt.Errorf(
			"include in %s must be a file name or list of file names, got %v", path, include,
		)
	}
}

// locate resolves a name to the real path of the file to read, applying the
// extension rule, the reserved-prefix check on the standard directory, and
// the both-directories precedence policy.
func (r *resolver) locate(name string) (string, error) {
	var file string
	switch ext := filepath.Ext(name); ext {
	case ".toml":
		file = name
	case "":
		file = name + ".toml"
	default:
		return "", fmt.Errorf("%w (unlike %s)", ErrBadExtension, name)
	}

	standardPath := filepath.Join(r.standardDir, file)
	userPath := filepath.Join(r.userDir, file)
	standardExists := fileExists(standardPath)
	userExists := fileExists(userPath)

	if standardExists && isUserReservedPath(standardPath) {
		return "", fmt.Errorf(
			"%w: path %s is reserved for user TOML files, but exists in %s",
			ErrReservedPath, standardPath, r.standardDir,
		)
	}

	var path string
	switch {
	case standardExists && userExists:
		path = userPath
		if r.preferStandard {
			path = standardPath
		}
		r.logger.Warnf("%s exists as %s and %s; using %s", file, standardPath, userPath, path)
	case standardExists:
		path = standardPath
	case userExists:
		path = userPath
	default:
		return "", fmt.Errorf(
			"%w: no readable file %s exists at %s or %s",
			ErrNotFound, file, standardPath, userPath,
		)
	}
	return realPath(path)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// realPath canonicalizes a path so the seen set recognizes the same file
// reached through different spellings or symlinks.
func realPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

// filesUsedString renders the contributing file paths, most recently loaded
// first, as a comma-joined list.
func filesUsedString(files []string) string {
	return strings.Join(files, ", ")
}
