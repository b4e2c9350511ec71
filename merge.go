package tomlparams

import (
	"fmt"
	"sort"
)

// includeKey is the reserved document-inclusion directive. It never counts
// as a bad key and never survives into consolidated output.
const includeKey = "include"

// reconcile walks defaults and overlay in lockstep and produces the
// consolidated map plus every mismatch found. hierarchy locates the current
// nesting level (empty at root). The overlay may be nil, which means "use
// defaults for everything at this level".
//
// The consolidated map always has exactly the defaults' key set: overlay
// values win where present (even when type-mismatched, since mismatches are
// advisory), overlay-only keys are reported as bad keys and dropped. The
// only immediately-fatal condition is a non-section overlay value where the
// defaults define a section.
func reconcile(hierarchy []string, defaults, overlay map[string]any) (map[string]any, []Mismatch, error) {
	consolidated := make(map[string]any, len(defaults))
	var mismatches []Mismatch

	for _, key := range sortedKeys(defaults) {
		defaultValue := defaults[key]

		if defaultSection, ok := defaultValue.(map[string]any); ok {
			child := childPath(hierarchy, key)
			var sub map[string]any
			if ov, present := overlay[key]; present && ov != nil {
				sub, ok = ov.(map[string]any)
				if !ok {
					return nil, nil, fmt.Errorf(
						"%w: %s should be a section of the toml file",
						ErrStructural, key,
					)
				}
			}
			nested, nestedMismatches, err := reconcile(child, defaultSection, sub)
			if err != nil {
				return nil, nil, err
			}
			consolidated[key] = nested
			mismatches = append(mismatches, nestedMismatches...)
			continue
		}

		ov, present := overlay[key]
		if !present {
			ov = defaultValue
		}

		if m, mismatched := checkLeafTypes(hierarchy, key, defaultValue, ov); mismatched {
			mismatches = append(mismatches, m)
		}
		consolidated[key] = copyValue(ov)
	}

	if overlay != nil {
		var badKeys []string
		for key := range overlay {
			if key == includeKey {
				continue
			}
			if _, ok := defaults[key]; !ok {
				badKeys = append(badKeys, key)
			}
		}
		sort.Strings(badKeys)
		for _, key := range badKeys {
			mismatches = append(mismatches, Mismatch{
				Kind:     BadKey,
				Position: hierarchy,
				Key:      key,
			})
		}
	}

	return consolidated, mismatches, nil
}

// checkLeafTypes compares a defaults leaf against the overlay value chosen
// for it. List-valued defaults use the element-type-set subset rule: a
// mismatch is raised only when the defaults' element types are not all
// present among the overlay's. Plain scalars require an exact nominal match
// in the TOML taxonomy, so bool is never int-compatible.
func checkLeafTypes(hierarchy []string, key string, defaultValue, overlayValue any) (Mismatch, bool) {
	defaultElems, defaultIsList := listElements(defaultValue)
	overlayElems, overlayIsList := listElements(overlayValue)

	switch {
	case defaultIsList && overlayIsList:
		defaultTypes := collectionTypeNames(defaultElems)
		overlayTypes := collectionTypeNames(overlayElems)
		if !isSubset(defaultTypes, overlayTypes) {
			return Mismatch{
				Kind:        TypeMismatch,
				Position:    hierarchy,
				Key:         key,
				DefaultType: renderTypeSet(defaultTypes),
				TOMLType:    renderTypeSet(overlayTypes),
			}, true
		}
	case defaultIsList != overlayIsList:
		defaultName := scalarTypeName(defaultValue)
		overlayName := scalarTypeName(overlayValue)
		if defaultIsList {
			defaultName = renderTypeSet(collectionTypeNames(defaultElems))
		} else {
			overlayName = renderTypeSet(collectionTypeNames(overlayElems))
		}
		return Mismatch{
			Kind:        TypeMismatch,
			Position:    hierarchy,
			Key:         key,
			DefaultType: defaultName,
			TOMLType:    overlayName,
		}, true
	default:
		defaultName := scalarTypeName(defaultValue)
		overlayName := scalarTypeName(overlayValue)
		if defaultName != overlayName {
			return Mismatch{
				Kind:        TypeMismatch,
				Position:    hierarchy,
				Key:         key,
				DefaultType: defaultName,
				TOMLType:    overlayName,
			}, true
		}
	}
	return Mismatch{}, false
}

// selectivelyUpdate merges src into dst in place: a key that holds a map in
// both sides is merged recursively, any other key is replaced by src's
// value. This is the fold used when resolving inclusion chains, so later
// documents win over earlier ones on conflict.
func selectivelyUpdate(dst, src map[string]any) {
	for key, value := range src {
		if srcSection, ok := value.(map[string]any); ok {
			if dstSection, ok := dst[key].(map[string]any); ok {
				selectivelyUpdate(dstSection, srcSection)
				continue
			}
		}
		dst[key] = value
	}
}

// copyValue deep-copies maps and []any lists so consolidated output shares
// no structure with defaults or overlay. Scalars are returned as-is.
func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = copyValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}

// childPath returns hierarchy extended by key, always as a fresh slice so
// stored mismatch positions never share a backing array.
func childPath(hierarchy []string, key string) []string {
	child := make([]string, len(hierarchy)+1)
	copy(child, hierarchy)
	child[len(hierarchy)] = key
	return child
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
