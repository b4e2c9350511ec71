package tomlparams

import (
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
)

func TestScalarTypeNames(t *testing.T) {
	tests := []struct {
		value any
		want  string
	}{
		{true, "bool"},
		{"x", "str"},
		{int64(1), "int"},
		{1, "int"},
		{uint8(1), "int"},
		{1.5, "float"},
		{float32(1.5), "float"},
		{toml.LocalDate{Year: 2024, Month: 6, Day: 1}, "date"},
		{toml.LocalTime{Hour: 12}, "time"},
		{toml.LocalDateTime{}, "datetime"},
		{time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), "datetime"},
		{map[string]any{}, "section"},
		{[]any{1, 2}, "list"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, scalarTypeName(tt.value), "value %#v", tt.value)
	}
}

func TestCollectionTypeNamesSortedAndDeduplicated(t *testing.T) {
	names := collectionTypeNames([]any{"b", int64(1), "a", int64(2), 1.5})
	assert.Equal(t, []string{"float", "int", "str"}, names)
	assert.Equal(t, "[float,int,str]", renderTypeSet(names))
}

func TestIsSubset(t *testing.T) {
	assert.True(t, isSubset([]string{"int"}, []string{"int", "str"}))
	assert.True(t, isSubset(nil, []string{"int"}))
	assert.False(t, isSubset([]string{"int", "str"}, []string{"str"}))
}

func TestMismatchKindString(t *testing.T) {
	assert.Equal(t, "TypeMismatch", TypeMismatch.String())
	assert.Equal(t, "BadKey", BadKey.String())
}

func TestMismatchListTypeRendering(t *testing.T) {
	m := Mismatch{
		Kind:        TypeMismatch,
		Position:    []string{"section"},
		Key:         "sizes",
		DefaultType: "[int,str]",
		TOMLType:    "[str]",
	}
	assert.Equal(t,
		"Type mismatch at level: section - key: sizes, default_type: [int,str], toml_type: [str]",
		m.String())
}
