package manifest

import (
	"fmt"
	"maps"
	"slices"
)

// isWorkspaceRef reports whether v is `{ workspace = true }`.
func isWorkspaceRef(v any) bool {
	m, ok := v.(map[string]any)
	if !ok {
		return false
	}
	ws, ok := m["workspace"].(bool)
	return ok && ws
}

func asString(field string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("`%s` must be a string, found %T", field, v)
	}
	return s, nil
}

func asBool(field string, v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("`%s` must be a boolean, found %T", field, v)
	}
	return b, nil
}

func asStrings(field string, v any) ([]string, error) {
	switch vs := v.(type) {
	case []string:
		return vs, nil
	case []any:
		out := make([]string, 0, len(vs))
		for _, item := range vs {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("`%s` must be an array of strings, found %T element", field, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("`%s` must be an array of strings, found %T", field, v)
	}
}

// asTables accepts a single table or an array of tables.
func asTables(field string, v any) ([]map[string]any, error) {
	switch vs := v.(type) {
	case map[string]any:
		return []map[string]any{vs}, nil
	case []map[string]any:
		return vs, nil
	case []any:
		out := make([]map[string]any, 0, len(vs))
		for _, item := range vs {
			t, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("`%s` must be an array of tables, found %T element", field, item)
			}
			out = append(out, t)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("`%s` must be a table or an array of tables, found %T", field, v)
	}
}

// mergeTables deep-merges overlay onto base without mutating either.
func mergeTables(base, overlay map[string]any) map[string]any {
	out := maps.Clone(base)
	if out == nil {
		out = map[string]any{}
	}
	for k, v := range overlay {
		if bm, ok := out[k].(map[string]any); ok {
			if om, ok := v.(map[string]any); ok {
				out[k] = mergeTables(bm, om)
				continue
			}
		}
		out[k] = v
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
