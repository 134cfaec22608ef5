package normalize

import (
	"sort"
	"strconv"
	"strings"
)

// Resolve walks the prioritized dot-paths against the raw document and
// returns the first defined value along with the path that produced it.
// The empty path means no candidate was present. Resolution is fully
// deterministic: identical document and path list always yield the same
// result.
//
// This is the single lookup mechanism for both header and per-line
// extraction; vendor-shape differences live in the alias tables, never
// in per-vendor code.
func Resolve(doc map[string]any, paths []string) (any, string) {
	for _, path := range paths {
		if value, ok := walkPath(doc, path); ok {
			return value, path
		}
	}
	return nil, ""
}

// walkPath follows one dot-path through nested objects. Integer
// segments index into arrays.
func walkPath(doc map[string]any, path string) (any, bool) {
	var node any = doc
	for _, segment := range strings.Split(path, ".") {
		switch n := node.(type) {
		case map[string]any:
			next, ok := n[segment]
			if !ok {
				return nil, false
			}
			node = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(n) {
				return nil, false
			}
			node = n[idx]
		default:
			return nil, false
		}
	}
	if node == nil {
		return nil, false
	}
	return node, true
}

// objectTextKeys are tried in order when coercing an object value to text.
var objectTextKeys = []string{"text", "value", "terms", "name", "description"}

// ResolveString resolves like Resolve but coerces the value to a string.
// Scalars are formatted; an object value yields its text/value/terms/
// name/description member, or the join of up to three string members.
// Anything else resolves to the empty string with no path.
func ResolveString(doc map[string]any, paths []string) (string, string) {
	for _, path := range paths {
		value, ok := walkPath(doc, path)
		if !ok {
			continue
		}
		if s, ok := coerceString(value); ok {
			return s, path
		}
	}
	return "", ""
}

func coerceString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return s, true
		}
		return "", false
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	case map[string]any:
		for _, key := range objectTextKeys {
			if member, ok := v[key]; ok {
				if s, ok := member.(string); ok && strings.TrimSpace(s) != "" {
					return strings.TrimSpace(s), true
				}
			}
		}
		// Small objects of plain strings are joined in key order so
		// the result does not depend on map iteration.
		if len(v) > 0 && len(v) <= 3 {
			keys := make([]string, 0, len(v))
			for k := range v {
				s, ok := v[k].(string)
				if !ok || strings.TrimSpace(s) == "" {
					return "", false
				}
				keys = append(keys, k)
			}
			sort.Strings(keys)
			parts := make([]string, 0, len(keys))
			for _, k := range keys {
				parts = append(parts, strings.TrimSpace(v[k].(string)))
			}
			return strings.Join(parts, " "), true
		}
		return "", false
	default:
		return "", false
	}
}
