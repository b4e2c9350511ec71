package tomlparams

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// ParamsGroup is an ordered container over one level of the consolidated
// parameter tree. Values are scalars, []any lists, nested *ParamsGroup
// sections, or []*ParamsGroup when the underlying value is a list of
// sections. Iteration follows insertion order, which for a group built from
// a consolidated map is sorted key order.
type ParamsGroup struct {
	keys   []string
	values map[string]any
}

// newParamsGroup returns an empty group.
func newParamsGroup() *ParamsGroup {
	return &ParamsGroup{values: map[string]any{}}
}

// groupFromMap builds a ParamsGroup tree from a nested map. Nested maps
// become nested groups; a non-empty list whose elements are all maps
// becomes a list of groups.
func groupFromMap(m map[string]any) *ParamsGroup {
	g := newParamsGroup()
	for _, key := range sortedKeys(m) {
		switch v := m[key].(type) {
		case map[string]any:
			g.Set(key, groupFromMap(v))
		case []any:
			if sections, ok := sectionList(v); ok {
				groups := make([]*ParamsGroup, len(sections))
				for i, s := range sections {
					groups[i] = groupFromMap(s)
				}
				g.Set(key, groups)
			} else {
				g.Set(key, copyValue(v).([]any))
			}
		default:
			g.Set(key, v)
		}
	}
	return g
}

// sectionList reports whether a non-empty list consists entirely of maps,
// returning the elements as maps when it does.
func sectionList(elems []any) ([]map[string]any, bool) {
	if len(elems) == 0 {
		return nil, false
	}
	sections := make([]map[string]any, len(elems))
	for i, e := range elems {
		m, ok := e.(map[string]any)
		if !ok {
			return nil, false
		}
		sections[i] = m
	}
	return sections, true
}

// Len returns the number of keys in the group.
func (g *ParamsGroup) Len() int { return len(g.keys) }

// Keys returns the group's keys in iteration order.
func (g *ParamsGroup) Keys() []string {
	out := make([]string, len(g.keys))
	copy(out, g.keys)
	return out
}

// Values returns the group's values in iteration order.
func (g *ParamsGroup) Values() []any {
	out := make([]any, len(g.keys))
	for i, key := range g.keys {
		out[i] = g.values[key]
	}
	return out
}

// Item is one key/value pair of a group.
type Item struct {
	Key   string
	Value any
}

// Items returns the group's key/value pairs in iteration order.
func (g *ParamsGroup) Items() []Item {
	out := make([]Item, len(g.keys))
	for i, key := range g.keys {
		out[i] = Item{Key: key, Value: g.values[key]}
	}
	return out
}

// Get returns the value for key, or nil when the key is absent.
func (g *ParamsGroup) Get(key string) any {
	return g.values[key]
}

// Lookup returns the value for key and whether it is present.
func (g *ParamsGroup) Lookup(key string) (any, bool) {
	v, ok := g.values[key]
	return v, ok
}

// Set stores a value, appending the key to the iteration order when new.
func (g *ParamsGroup) Set(key string, value any) {
	if _, ok := g.values[key]; !ok {
		g.keys = append(g.keys, key)
	}
	g.values[key] = value
}

// AsMap returns a deep plain-map view of the group, with nested groups and
// lists of groups converted back to maps.
func (g *ParamsGroup) AsMap() map[string]any {
	out := make(map[string]any, len(g.keys))
	for _, key := range g.keys {
		switch v := g.values[key].(type) {
		case *ParamsGroup:
			out[key] = v.AsMap()
		case []*ParamsGroup:
			arr := make([]any, len(v))
			for i, sub := range v {
				arr[i] = sub.AsMap()
			}
			out[key] = arr
		case []any:
			out[key] = copyValue(v)
		default:
			out[key] = v
		}
	}
	return out
}

// Equal compares two groups by their flattened dot-joined leaf maps, which
// makes the comparison independent of internal bookkeeping and of how list
// sections were materialized.
func (g *ParamsGroup) Equal(other *ParamsGroup) bool {
	if g == nil || other == nil {
		return g == other
	}
	return reflect.DeepEqual(flattenLeaves(g.AsMap(), "."), flattenLeaves(other.AsMap(), "."))
}

// FlattenKeys flattens the group to a map of dot-joined leaf keys,
// descending into lists by index: {"a":{"b":1},"d":[3,{"e":4}]} becomes
// {"a.b":1, "d.0":3, "d.1.e":4}.
func (g *ParamsGroup) FlattenKeys() map[string]any {
	return flattenLeaves(g.AsMap(), ".")
}

// saveable flattens the group to a plain map restricted to keys that exist
// in the reference structure, so injected attributes are never persisted.
// Listed sections flatten against themselves, matching how they were
// constructed from the document.
func (g *ParamsGroup) saveable(ref map[string]any) map[string]any {
	out := map[string]any{}
	for _, key := range g.keys {
		refValue, ok := ref[key]
		if !ok {
			continue
		}
		switch v := g.values[key].(type) {
		case *ParamsGroup:
			refSection, _ := refValue.(map[string]any)
			out[key] = v.saveable(refSection)
		case []*ParamsGroup:
			arr := make([]any, len(v))
			for i, sub := range v {
				arr[i] = sub.saveable(sub.AsMap())
			}
			out[key] = arr
		case []any:
			out[key] = copyValue(v)
		default:
			out[key] = v
		}
	}
	return out
}

// GetPath resolves a dotted key path through nested groups and list
// indices, e.g. "section.runs.3.seed".
func (g *ParamsGroup) GetPath(path string) (any, error) {
	segments := strings.Split(path, ".")
	var current any = g
	for i, segment := range segments {
		next, err := descend(current, segment)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", err, strings.Join(segments[:i+1], "."))
		}
		current = next
	}
	return current, nil
}

// SetPath assigns through the same dotted traversal as GetPath. Every
// intermediate segment must resolve; the final segment may introduce a new
// key on a group but must be an existing index on a list.
func (g *ParamsGroup) SetPath(path string, value any) error {
	segments := strings.Split(path, ".")
	var current any = g
	for i, segment := range segments[:len(segments)-1] {
		next, err := descend(current, segment)
		if err != nil {
			return fmt.Errorf("%w: %s", err, strings.Join(segments[:i+1], "."))
		}
		current = next
	}

	last := segments[len(segments)-1]
	switch node := current.(type) {
	case *ParamsGroup:
		node.Set(last, value)
		return nil
	case []*ParamsGroup:
		idx, err := listIndex(last, len(node))
		if err != nil {
			return fmt.Errorf("%w: %s", err, path)
		}
		sub, ok := value.(*ParamsGroup)
		if !ok {
			return fmt.Errorf("%w: %s: list element must be a group", ErrKeyPath, path)
		}
		node[idx] = sub
		return nil
	case []any:
		idx, err := listIndex(last, len(node))
		if err != nil {
			return fmt.Errorf("%w: %s", err, path)
		}
		node[idx] = value
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrKeyPath, path)
	}
}

// descend resolves one path segment against a group or list node.
func descend(current any, segment string) (any, error) {
	switch node := current.(type) {
	case *ParamsGroup:
		v, ok := node.Lookup(segment)
		if !ok {
			return nil, ErrKeyPath
		}
		return v, nil
	case []*ParamsGroup:
		idx, err := listIndex(segment, len(node))
		if err != nil {
			return nil, err
		}
		return node[idx], nil
	case []any:
		idx, err := listIndex(segment, len(node))
		if err != nil {
			return nil, err
		}
		return node[idx], nil
	default:
		return nil, ErrKeyPath
	}
}

func listIndex(segment string, length int) (int, error) {
	idx, err := strconv.Atoi(segment)
	if err != nil || idx < 0 || idx >= length {
		return 0, ErrKeyPath
	}
	return idx, nil
}

// flattenLeaves flattens a nested map to dot-joined leaf keys, descending
// into lists by index: {"a":{"b":1},"d":[3,{"e":4}]} becomes
// {"a.b":1, "d.0":3, "d.1.e":4}.
func flattenLeaves(m map[string]any, sep string) map[string]any {
	out := map[string]any{}
	flattenInto(out, "", m, sep)
	return out
}

func flattenInto(out map[string]any, prefix string, v any, sep string) {
	switch node := v.(type) {
	case map[string]any:
		for key, value := range node {
			full := key
			if prefix != "" {
				full = prefix + sep + key
			}
			flattenInto(out, full, value, sep)
		}
	case []any:
		for i, value := range node {
			flattenInto(out, prefix+sep+strconv.Itoa(i), value, sep)
		}
	default:
		out[prefix] = v
	}
}

// String renders the group with one parameter per line, nesting indented
// four spaces per level.
func (g *ParamsGroup) String() string {
	return g.render(0)
}

func (g *ParamsGroup) render(depth int) string {
	paramIndent := strings.Repeat("    ", depth+1)
	groupIndent := strings.Repeat("    ", depth)
	parts := make([]string, 0, len(g.keys))
	for _, key := range g.keys {
		parts = append(parts, fmt.Sprintf("%s: %s", key, renderValue(g.values[key], depth)))
	}
	if len(parts) == 0 {
		return "ParamsGroup()"
	}
	body := strings.Join(parts, ",\n"+paramIndent)
	return fmt.Sprintf("ParamsGroup(\n%s%s\n%s)", paramIndent, body, groupIndent)
}

func renderValue(v any, depth int) string {
	switch node := v.(type) {
	case *ParamsGroup:
		return node.render(depth + 1)
	case []*ParamsGroup:
		parts := make([]string, len(node))
		for i, sub := range node {
			parts[i] = sub.render(depth + 1)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("%v", v)
	}
}
