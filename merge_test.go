package tomlparams

import (
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileDefaultsOnly(t *testing.T) {
	defaults := map[string]any{
		"n": int64(1),
		"f": 1.5,
		"s": "tomlparams",
		"b": true,
		"d": toml.LocalDate{Year: 2000, Month: 1, Day: 1},
		"subsection": map[string]any{
			"n":  int64(0),
			"pi": 3.14159265,
		},
		"formats": []any{"csv", "toml"},
	}

	consolidated, mismatches, err := reconcile(nil, defaults, map[string]any{})
	require.NoError(t, err)
	assert.Empty(t, mismatches)
	assert.Equal(t, defaults, consolidated)
}

func TestReconcileNilOverlayTreatedAsEmpty(t *testing.T) {
	defaults := map[string]any{"n": int64(1), "sub": map[string]any{"m": int64(2)}}

	consolidated, mismatches, err := reconcile(nil, defaults, nil)
	require.NoError(t, err)
	assert.Empty(t, mismatches)
	assert.Equal(t, defaults, consolidated)
}

func TestReconcileOverlayWins(t *testing.T) {
	defaults := map[string]any{
		"n": int64(1),
		"s": "x",
		"sub": map[string]any{
			"n": int64(0),
		},
	}
	overlay := map[string]any{
		"s": "y",
		"sub": map[string]any{
			"n": int64(2),
		},
	}

	consolidated, mismatches, err := reconcile(nil, defaults, overlay)
	require.NoError(t, err)
	assert.Empty(t, mismatches)
	assert.Equal(t, map[string]any{
		"n": int64(1),
		"s": "y",
		"sub": map[string]any{
			"n": int64(2),
		},
	}, consolidated)
}

func TestReconcileTypeMismatchStillUsesOverlayValue(t *testing.T) {
	defaults := map[string]any{"z": int64(4)}
	overlay := map[string]any{"z": "4"}

	consolidated, mismatches, err := reconcile(nil, defaults, overlay)
	require.NoError(t, err)
	require.Len(t, mismatches, 1)

	m := mismatches[0]
	assert.Equal(t, TypeMismatch, m.Kind)
	assert.Equal(t, "z", m.Key)
	assert.Equal(t, "int", m.DefaultType)
	assert.Equal(t, "str", m.TOMLType)
	assert.Equal(t,
		"Type mismatch at root level - key: z, default_type: int, toml_type: str",
		m.String())

	// The mismatch is reported, not corrected.
	assert.Equal(t, "4", consolidated["z"])
}

func TestReconcileExactNominalTypes(t *testing.T) {
	tests := []struct {
		name         string
		defaultValue any
		overlayValue any
		wantDefault  string
		wantTOML     string
	}{
		{"bool is not int", int64(1), true, "int", "bool"},
		{"int is not bool", true, int64(1), "bool", "int"},
		{"int is not float", int64(1), 1.0, "int", "float"},
		{"str is not date", "1970-01-01", toml.LocalDate{Year: 1970, Month: 1, Day: 1}, "str", "date"},
		{"date is not datetime", toml.LocalDate{Year: 1970, Month: 1, Day: 1}, toml.LocalDateTime{}, "date", "datetime"},
		{"time is not str", toml.LocalTime{Hour: 12}, "12:00:00", "time", "str"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defaults := map[string]any{"v": tt.defaultValue}
			overlay := map[string]any{"v": tt.overlayValue}

			_, mismatches, err := reconcile(nil, defaults, overlay)
			require.NoError(t, err)
			require.Len(t, mismatches, 1)
			assert.Equal(t, tt.wantDefault, mismatches[0].DefaultType)
			assert.Equal(t, tt.wantTOML, mismatches[0].TOMLType)
		})
	}
}

func TestReconcileMatchingTypesReportNothing(t *testing.T) {
	defaults := map[string]any{
		"n": int64(1),
		"f": 1.5,
		"s": "x",
		"b": false,
	}
	overlay := map[string]any{
		"n": int64(99),
		"f": 2.5,
		"s": "y",
		"b": true,
	}

	_, mismatches, err := reconcile(nil, defaults, overlay)
	require.NoError(t, err)
	assert.Empty(t, mismatches)
}

func TestReconcileIntWidthsAreEquivalent(t *testing.T) {
	// Programmatic defaults often carry int where TOML decodes int64.
	defaults := map[string]any{"n": 1}
	overlay := map[string]any{"n": int64(2)}

	consolidated, mismatches, err := reconcile(nil, defaults, overlay)
	require.NoError(t, err)
	assert.Empty(t, mismatches)
	assert.Equal(t, int64(2), consolidated["n"])
}

func TestReconcileListTypeSets(t *testing.T) {
	tests := []struct {
		name         string
		defaultValue any
		overlayValue any
		wantMismatch bool
		wantDefault  string
		wantTOML     string
	}{
		{
			name:         "same element types",
			defaultValue: []any{int64(1), int64(2)},
			overlayValue: []any{int64(3)},
		},
		{
			name:         "overlay superset is fine",
			defaultValue: []any{int64(1)},
			overlayValue: []any{int64(3), "x"},
		},
		{
			name:         "default type missing from overlay",
			defaultValue: []any{int64(1), "x"},
			overlayValue: []any{"y"},
			wantMismatch: true,
			wantDefault:  "[int,str]",
			wantTOML:     "[str]",
		},
		{
			name:         "scalar where list expected",
			defaultValue: []any{int64(1)},
			overlayValue: "one",
			wantMismatch: true,
			wantDefault:  "[int]",
			wantTOML:     "str",
		},
		{
			name:         "list where scalar expected",
			defaultValue: "one",
			overlayValue: []any{int64(1)},
			wantMismatch: true,
			wantDefault:  "str",
			wantTOML:     "[int]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defaults := map[string]any{"v": tt.defaultValue}
			overlay := map[string]any{"v": tt.overlayValue}

			consolidated, mismatches, err := reconcile(nil, defaults, overlay)
			require.NoError(t, err)
			if !tt.wantMismatch {
				assert.Empty(t, mismatches)
				return
			}
			require.Len(t, mismatches, 1)
			assert.Equal(t, tt.wantDefault, mismatches[0].DefaultType)
			assert.Equal(t, tt.wantTOML, mismatches[0].TOMLType)
			// Overlay value still wins.
			assert.Equal(t, tt.overlayValue, consolidated["v"])
		})
	}
}

func TestReconcileBadKeyAtDepth(t *testing.T) {
	defaults := map[string]any{
		"s": int64(1),
		"section": map[string]any{
			"subsection": map[string]any{"m": "two"},
		},
	}
	overlay := map[string]any{
		"section": map[string]any{
			"subsection": map[string]any{"n": int64(3)},
		},
	}

	consolidated, mismatches, err := reconcile(nil, defaults, overlay)
	require.NoError(t, err)
	require.Len(t, mismatches, 1)

	m := mismatches[0]
	assert.Equal(t, BadKey, m.Kind)
	assert.Equal(t, []string{"section", "subsection"}, m.Position)
	assert.Equal(t, "n", m.Key)
	assert.Equal(t, "Bad key at level: section.subsection - key: n", m.String())

	// Bad keys are dropped: the key set matches the defaults at every level.
	sub := consolidated["section"].(map[string]any)["subsection"].(map[string]any)
	assert.Equal(t, []string{"m"}, sortedKeys(sub))
}

func TestReconcileIncludeIsNeverABadKey(t *testing.T) {
	defaults := map[string]any{"n": int64(1)}
	overlay := map[string]any{"n": int64(2), "include": "base"}

	consolidated, mismatches, err := reconcile(nil, defaults, overlay)
	require.NoError(t, err)
	assert.Empty(t, mismatches)
	_, present := consolidated["include"]
	assert.False(t, present)
}

func TestReconcileScalarForSectionIsFatal(t *testing.T) {
	defaults := map[string]any{
		"section": map[string]any{"n": int64(1)},
	}
	overlay := map[string]any{"section": "not a section"}

	_, _, err := reconcile(nil, defaults, overlay)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStructural)
	assert.Contains(t, err.Error(), "section should be a section of the toml file")
}

func TestReconcileStructuralErrorNamesBareKey(t *testing.T) {
	defaults := map[string]any{
		"outer": map[string]any{
			"inner": map[string]any{"n": int64(1)},
		},
	}
	overlay := map[string]any{
		"outer": map[string]any{
			"inner": "not a section",
		},
	}

	_, _, err := reconcile(nil, defaults, overlay)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStructural)
	assert.Contains(t, err.Error(), "inner should be a section of the toml file")
	assert.NotContains(t, err.Error(), "outer.inner")
}

func TestReconcileMismatchOrderIsDeterministic(t *testing.T) {
	defaults := map[string]any{
		"a": int64(1),
		"m": map[string]any{"x": int64(1)},
		"z": int64(1),
	}
	overlay := map[string]any{
		"a": "1",
		"m": map[string]any{"x": "1"},
		"z": "1",
	}

	_, mismatches, err := reconcile(nil, defaults, overlay)
	require.NoError(t, err)
	require.Len(t, mismatches, 3)
	assert.Equal(t, "a", mismatches[0].Key)
	assert.Equal(t, []string{"m"}, mismatches[1].Position)
	assert.Equal(t, "z", mismatches[2].Key)
}

func TestAggregateIssues(t *testing.T) {
	mismatches := []Mismatch{
		{Kind: TypeMismatch, Key: "s", DefaultType: "str", TOMLType: "int"},
		{Kind: BadKey, Position: []string{"section", "subsection"}, Key: "n"},
	}
	want := "The following issues were found:\n" +
		" Type mismatch at root level - key: s, default_type: str, toml_type: int\n" +
		" Bad key at level: section.subsection - key: n\n" +
		"\n"
	assert.Equal(t, want, aggregateIssues(mismatches))
}

func TestSelectivelyUpdate(t *testing.T) {
	dst := map[string]any{
		"a": int64(1),
		"sub": map[string]any{
			"x": int64(1),
			"y": int64(2),
		},
	}
	src := map[string]any{
		"a": int64(9),
		"sub": map[string]any{
			"y": int64(9),
		},
		"b": "new",
	}

	selectivelyUpdate(dst, src)
	assert.Equal(t, map[string]any{
		"a": int64(9),
		"sub": map[string]any{
			"x": int64(1),
			"y": int64(9),
		},
		"b": "new",
	}, dst)
}

func TestSelectivelyUpdateReplacesNonSectionWithSection(t *testing.T) {
	dst := map[string]any{"v": int64(1)}
	src := map[string]any{"v": map[string]any{"x": int64(2)}}

	selectivelyUpdate(dst, src)
	assert.Equal(t, src, dst)
}
