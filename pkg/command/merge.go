package command

// mergeValue merges incoming into existing and returns the merged value.
// Incoming is expected to be an exclusive copy; it may be stored as is.
func mergeValue(existing, incoming any) any {
	if incoming == nil {
		return existing
	}
	src, ok := incoming.(map[string]any)
	if !ok {
		return incoming
	}
	dst, ok := existing.(map[string]any)
	if !ok {
		dst = make(map[string]any, len(src))
	}
	mergeMap(dst, src)
	return dst
}

func mergeMap(dst, src map[string]any) {
	for k, v := range src {
		switch sv := v.(type) {
		case map[string]any:
			dm, ok := dst[k].(map[string]any)
			if !ok {
				dm = make(map[string]any, len(sv))
				dst[k] = dm
			}
			mergeMap(dm, sv)

		case []any:
			if first := firstMap(dst[k]); first != nil && len(sv) == 1 {
				if sm, ok := sv[0].(map[string]any); ok {
					mergeMap(first, sm)
					continue
				}
			}
			dst[k] = sv

		default:
			dst[k] = v
		}
	}
}

// firstMap returns the first element of v when v is a non-empty list
// starting with a mapping.
func firstMap(v any) map[string]any {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return nil
	}
	m, _ := list[0].(map[string]any)
	return m
}

// deepCopy copies JSON-compatible trees. Typed slices of mappings are
// normalised to []any so they merge like decoded JSON.
func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = deepCopy(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopy(e)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopy(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case []int:
		return append([]int(nil), t...)
	case []float64:
		return append([]float64(nil), t...)
	default:
		return v
	}
}
