package tomlparams

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
)

const (
	// DefaultParamsName is the namespace used to derive the default
	// directories (~/tomlparams, ~/usertomlparams) and the default
	// file-selection environment variable (TOMLPARAMS).
	DefaultParamsName = "tomlparams"

	// DefaultTypeCheckEnvVar overrides the type-checking policy when set
	// to one of "warn", "error" or "off".
	DefaultTypeCheckEnvVar = "TOMLPARAMSCHECKING"

	// DefaultBaseStem is the file stem loaded when neither an explicit
	// name nor the environment variable selects one.
	DefaultBaseStem = "base"
)

// defaultsOnlyNames are the sentinel names meaning "read no params file at
// all; use the defaults as-is".
var defaultsOnlyNames = map[string]bool{
	"default":  true,
	"defaults": true,
}

// TypeChecking is the policy applied to type mismatches found during a
// load. Bad keys are fatal under every policy.
type TypeChecking int

const (
	// Off discards type mismatches silently.
	Off TypeChecking = iota
	// Warn logs type mismatches as a single aggregated warning.
	Warn
	// Error fails the load when any type mismatch is found.
	Error
)

// String returns the policy name as accepted by the checking environment
// variable.
func (tc TypeChecking) String() string {
	switch tc {
	case Off:
		return "off"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("TypeChecking(%d)", int(tc))
	}
}

// parseTypeChecking maps a checking environment-variable value onto the
// policy enum, case-insensitively.
func parseTypeChecking(value string) (TypeChecking, bool) {
	switch strings.ToLower(value) {
	case "off":
		return Off, true
	case "warn":
		return Warn, true
	case "error":
		return Error, true
	default:
		return Off, false
	}
}

// LookupEnv is the environment accessor injected into the loader, matching
// os.LookupEnv. Supplying a custom one keeps loads testable without
// mutating the process environment.
type LookupEnv func(key string) (string, bool)

type options struct {
	name            string
	paramsName      string
	envVar          string
	baseStem        string
	standardDir     string
	userDir         string
	checkTypes      TypeChecking
	typeCheckEnvVar string
	preferStandard  bool
	verbose         bool
	logger          *log.Logger
	lookupEnv       LookupEnv
}

// Option configures the loader at construction.
type Option func(*options)

// WithName selects the params file stem explicitly, bypassing the
// environment variable and base stem.
func WithName(name string) Option { return func(o *options) { o.name = name } }

// WithParamsName changes the namespace the default directories and the
// default file-selection environment variable are derived from.
func WithParamsName(name string) Option { return func(o *options) { o.paramsName = name } }

// WithEnvVar names the environment variable consulted for the file stem
// when no explicit name is given.
func WithEnvVar(name string) Option { return func(o *options) { o.envVar = name } }

// WithBaseStem changes the fallback file stem (default "base").
func WithBaseStem(stem string) Option { return func(o *options) { o.baseStem = stem } }

// WithStandardDir sets the standard (shared, version-controlled) params
// directory.
func WithStandardDir(dir string) Option { return func(o *options) { o.standardDir = dir } }

// WithUserDir sets the user (local-only) params directory.
func WithUserDir(dir string) Option { return func(o *options) { o.userDir = dir } }

// WithCheckTypes sets the type-checking policy (default Warn).
func WithCheckTypes(tc TypeChecking) Option { return func(o *options) { o.checkTypes = tc } }

// WithTypeCheckEnvVar names the environment variable that can override the
// type-checking policy.
func WithTypeCheckEnvVar(name string) Option { return func(o *options) { o.typeCheckEnvVar = name } }

// WithPreferStandard makes the standard directory win when a file exists in
// both directories. The default is the user directory winning.
func WithPreferStandard(prefer bool) Option { return func(o *options) { o.preferStandard = prefer } }

// WithVerbose controls load reporting on the default logger. Warnings are
// emitted either way.
func WithVerbose(verbose bool) Option { return func(o *options) { o.verbose = verbose } }

// WithLogger replaces the diagnostic logger.
func WithLogger(logger *log.Logger) Option { return func(o *options) { o.logger = logger } }

// WithLookupEnv replaces the environment accessor (default os.LookupEnv).
func WithLookupEnv(lookup LookupEnv) Option { return func(o *options) { o.lookupEnv = lookup } }

// TOMLParams holds one loaded parameter set: the immutable defaults, the
// consolidated values, and the ordered parameter tree derived from them.
// An instance is built by one load and read afterwards; concurrent loads
// need one instance each.
type TOMLParams struct {
	defaults     map[string]any
	consolidated map[string]any
	root         *ParamsGroup

	name            string
	baseStem        string
	envVar          string
	typeCheckEnvVar string
	standardDir     string
	userDir         string
	checkTypes      TypeChecking
	preferStandard  bool

	filesUsed []string
	logger    *log.Logger
	lookupEnv LookupEnv
}

// New builds a loaded parameter set. defaults is the application-supplied
// schema and fallback values: a nested map[string]any, the path of a
// defaults TOML file (absolute, or relative to the standard directory), or
// a directory of TOML files whose top-level keys are combined. Defaults may
// never contain the reserved "include" key.
func New(defaults any, opts ...Option) (*TOMLParams, error) {
	o := options{
		paramsName: DefaultParamsName,
		baseStem:   DefaultBaseStem,
		checkTypes: Warn,
		verbose:    true,
		lookupEnv:  os.LookupEnv,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.envVar == "" {
		o.envVar = strings.ToUpper(o.paramsName)
	}
	if o.typeCheckEnvVar == "" {
		o.typeCheckEnvVar = DefaultTypeCheckEnvVar
	}
	if o.standardDir == "" {
		o.standardDir = expandUser("~/" + o.paramsName)
	}
	if o.userDir == "" {
		o.userDir = expandUser("~/user" + o.paramsName)
	}
	if o.logger == nil {
		level := log.InfoLevel
		if !o.verbose {
			level = log.WarnLevel
		}
		o.logger = log.NewWithOptions(os.Stderr, log.Options{
			Prefix: o.paramsName,
			Level:  level,
		})
	}

	p := &TOMLParams{
		baseStem:        o.baseStem,
		envVar:          o.envVar,
		typeCheckEnvVar: o.typeCheckEnvVar,
		standardDir:     o.standardDir,
		userDir:         o.userDir,
		checkTypes:      o.checkTypes,
		preferStandard:  o.preferStandard,
		logger:          o.logger,
		lookupEnv:       o.lookupEnv,
	}

	resolved, err := p.resolveDefaults(defaults)
	if err != nil {
		return nil, err
	}
	p.defaults = resolved

	if value, ok := p.lookupEnv(p.typeCheckEnvVar); ok {
		tc, valid := parseTypeChecking(value)
		if !valid {
			return nil, fmt.Errorf(
				"%w: change %s (currently %q) to one of: 'warn', 'error', or 'off'",
				ErrBadCheckValue, p.typeCheckEnvVar, value,
			)
		}
		p.checkTypes = tc
	}

	if err := p.Reload(o.name); err != nil {
		return nil, err
	}
	return p, nil
}

// Reload resolves the effective name and re-runs the whole load, replacing
// all consolidated state. An empty name falls back to the selection
// environment variable and then the base stem; when the variable is set to
// the empty string, only the defaults are used and no file is read.
func (p *TOMLParams) Reload(name string) error {
	if name == "" {
		if value, ok := p.lookupEnv(p.envVar); ok {
			name = value
		} else {
			name = p.baseStem
		}
	}
	p.name = name
	return p.load()
}

// load runs the inclusion resolver and merge engine for the current name
// and applies the type-checking policy to the result.
func (p *TOMLParams) load() error {
	p.filesUsed = nil
	overlay := map[string]any{}
	if p.name == "" || defaultsOnlyNames[p.name] {
		p.logger.Info("Using default parameters.")
	} else {
		r := newResolver(p.standardDir, p.userDir, p.preferStandard, p.logger)
		doc, err := r.resolve(p.name)
		if err != nil {
			return err
		}
		overlay = doc
		p.filesUsed = r.filesUsed
	}

	consolidated, mismatches, err := reconcile(nil, p.defaults, overlay)
	if err != nil {
		return err
	}

	var typeMismatches, badKeys []Mismatch
	for _, m := range mismatches {
		if m.Kind == BadKey {
			badKeys = append(badKeys, m)
		} else {
			typeMismatches = append(typeMismatches, m)
		}
	}

	var fatal []Mismatch
	if len(typeMismatches) > 0 {
		switch p.checkTypes {
		case Warn:
			p.logger.Warn(aggregateIssues(typeMismatches))
		case Error:
			fatal = append(fatal, typeMismatches...)
		}
	}
	// A bad key is never just a warning.
	fatal = append(fatal, badKeys...)
	if len(fatal) > 0 {
		return &IssuesError{Mismatches: fatal}
	}

	p.consolidated = consolidated
	p.root = groupFromMap(consolidated)
	return nil
}

// resolveDefaults turns the defaults argument into a nested map and
// enforces the no-include rule.
func (p *TOMLParams) resolveDefaults(defaults any) (map[string]any, error) {
	switch d := defaults.(type) {
	case map[string]any:
		if containsInclude(d) {
			return nil, ErrInclude
		}
		return copyValue(d).(map[string]any), nil
	case string:
		path := d
		if !filepath.IsAbs(path) {
			path = filepath.Join(p.standardDir, path)
		}
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return loadDefaultsDir(path)
		}
		return loadDefaultsFile(path)
	default:
		return nil, fmt.Errorf("defaults must be a map[string]any or a path, got %T", defaults)
	}
}

// loadDefaultsFile loads a single defaults TOML file, appending the .toml
// extension when the path has none.
func loadDefaultsFile(path string) (map[string]any, error) {
	if filepath.Ext(path) == "" {
		path += ".toml"
	}
	if !fileExists(path) {
		return nil, fmt.Errorf("%w: defaults cannot be read from %s", ErrNotFound, path)
	}
	doc, err := loadTOMLFile(path)
	if err != nil {
		return nil, err
	}
	if containsInclude(doc) {
		return nil, fmt.Errorf("%w (defaults file %s)", ErrInclude, path)
	}
	return doc, nil
}

// loadDefaultsDir combines every *.toml file in a directory into one
// defaults map. Files must not use the include key, and two files defining
// the same top-level key is fatal, naming both files.
func loadDefaultsDir(dir string) (map[string]any, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: reading defaults directory %s: %v", ErrNotFound, dir, err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".toml" {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no defaults TOML files in %s", ErrNotFound, dir)
	}

	merged := map[string]any{}
	owner := map[string]string{}
	for _, file := range files {
		path := filepath.Join(dir, file)
		doc, err := loadTOMLFile(path)
		if err != nil {
			return nil, err
		}
		if containsInclude(doc) {
			return nil, fmt.Errorf("%w (defaults file %s)", ErrInclude, path)
		}
		for _, key := range sortedKeys(doc) {
			if previous, taken := owner[key]; taken {
				return nil, fmt.Errorf(
					"%w: key %q defined in both %s and %s",
					ErrDuplicateKey, key, previous, path,
				)
			}
			owner[key] = path
			merged[key] = doc[key]
		}
	}
	return merged, nil
}

// containsInclude reports whether the reserved include key appears anywhere
// in a nested map.
func containsInclude(m map[string]any) bool {
	for key, value := range m {
		if key == includeKey {
			return true
		}
		if section, ok := value.(map[string]any); ok && containsInclude(section) {
			return true
		}
	}
	return false
}

// expandUser replaces a leading ~ with the home directory.
func expandUser(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// Root returns the consolidated parameter tree.
func (p *TOMLParams) Root() *ParamsGroup { return p.root }

// Get returns a top-level parameter, or nil when absent.
func (p *TOMLParams) Get(key string) any { return p.root.Get(key) }

// Lookup returns a top-level parameter and whether it is present.
func (p *TOMLParams) Lookup(key string) (any, bool) { return p.root.Lookup(key) }

// GetPath resolves a dotted key path through nested groups and list
// indices.
func (p *TOMLParams) GetPath(path string) (any, error) { return p.root.GetPath(path) }

// SetPath assigns through a dotted key path. Intermediate segments must
// resolve.
func (p *TOMLParams) SetPath(path string, value any) error { return p.root.SetPath(path, value) }

// Name returns the effective file stem the instance was loaded from.
func (p *TOMLParams) Name() string { return p.name }

// CheckTypes returns the effective type-checking policy after any
// environment override.
func (p *TOMLParams) CheckTypes() TypeChecking { return p.checkTypes }

// Defaults returns a deep copy of the defaults structure.
func (p *TOMLParams) Defaults() map[string]any {
	return copyValue(p.defaults).(map[string]any)
}

// FilesUsed returns the paths of every file that contributed to the load,
// most recently loaded first.
func (p *TOMLParams) FilesUsed() []string {
	out := make([]string, len(p.filesUsed))
	copy(out, p.filesUsed)
	return out
}

// FilesUsedString renders FilesUsed as a comma-joined list.
func (p *TOMLParams) FilesUsedString() string { return filesUsedString(p.filesUsed) }

// AsSaveableMap flattens the parameter tree to a plain map restricted to
// keys present in the defaults, so injected attributes are never
// persisted.
func (p *TOMLParams) AsSaveableMap() map[string]any {
	return p.root.saveable(p.defaults)
}

// WriteConsolidated writes the consolidated parameters to a single TOML
// file at path, overwriting it.
func (p *TOMLParams) WriteConsolidated(path string) error {
	if err := writeTOMLFile(path, p.AsSaveableMap()); err != nil {
		return err
	}
	p.logger.Infof("Consolidated TOML file written to %s.", path)
	return nil
}

// String renders the loaded parameters one per line.
func (p *TOMLParams) String() string {
	return "TOMLParams" + strings.TrimPrefix(p.root.render(0), "ParamsGroup")
}
