package tomlparams

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// loadTOMLFile reads a TOML document into a nested map. Scalars decode to
// bool, string, int64, float64, time.Time (offset datetimes) and the
// toml.LocalDate/LocalTime/LocalDateTime types, which is exactly the scalar
// set the type checker distinguishes.
func loadTOMLFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading params file %s: %w", path, err)
	}
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing params file %s: %w", path, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

// writeTOMLFile marshals a nested map and overwrites the file at path.
func writeTOMLFile(path string, doc map[string]any) error {
	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding params for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing params file %s: %w", path, err)
	}
	return nil
}
