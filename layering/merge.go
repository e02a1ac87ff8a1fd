// Package layering deep-copies and merges JSON-shaped values (maps keyed by
// string, slices of any, scalars). It backs the defensive copies taken by the
// shared store and the defaults layering done by the configuration loader.
package layering

// MergeMaps composes maps ordered from strongest to weakest, returning a new
// map that keeps keys from stronger layers and fills missing keys from weaker
// ones. Nested maps are merged recursively; any other value from a stronger
// layer replaces the weaker value wholesale.
func MergeMaps(layers ...map[string]any) map[string]any {
	if len(layers) == 0 {
		return nil
	}

	merged := CloneMap(layers[len(layers)-1])
	for i := len(layers) - 2; i >= 0; i-- {
		merged = mergeMap(layers[i], merged)
	}
	return merged
}

func mergeMap(strong, weak map[string]any) map[string]any {
	if strong == nil {
		return CloneMap(weak)
	}
	out := make(map[string]any, len(strong)+len(weak))
	for key, value := range weak {
		out[key] = Clone(value)
	}
	for key, value := range strong {
		strongMap, strongIsMap := value.(map[string]any)
		weakMap, weakIsMap := out[key].(map[string]any)
		if strongIsMap && weakIsMap {
			out[key] = mergeMap(strongMap, weakMap)
			continue
		}
		out[key] = Clone(value)
	}
	return out
}

// Clone returns a deep copy of JSON-shaped values. Values of other types are
// returned as-is.
func Clone(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return CloneMap(typed)
	case []any:
		if typed == nil {
			return typed
		}
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = Clone(item)
		}
		return out
	case []string:
		if typed == nil {
			return typed
		}
		return append([]string(nil), typed...)
	default:
		return value
	}
}

// CloneMap deep copies m. A nil map stays nil.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for key, value := range m {
		out[key] = Clone(value)
	}
	return out
}
