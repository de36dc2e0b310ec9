package features

import (
	"fmt"
	"sort"
)

// FromDict converts a feature dict with mixed value types to feature tokens
// and their values, sorted by token.
//
// Conversion rules:
//   - string value: "key=value" → 1.0
//   - []string value: "key:item" → 1.0 for each item
//   - bool value: "key" → 1.0 if true
//   - int/float value: "key" → float64(value)
func FromDict(features map[string]any) ([]string, []float64) {
	attrs := make(map[string]float64)
	for key, val := range features {
		switch v := val.(type) {
		case string:
			attrs[fmt.Sprintf("%s=%s", key, v)] = 1.0
		case []string:
			for _, item := range v {
				attrs[fmt.Sprintf("%s:%s", key, item)] = 1.0
			}
		case []any:
			for _, item := range v {
				attrs[fmt.Sprintf("%s:%v", key, item)] = 1.0
			}
		case bool:
			if v {
				attrs[key] = 1.0
			}
		case int:
			attrs[key] = float64(v)
		case float64:
			attrs[key] = v
		default:
			attrs[key] = 1.0
		}
	}

	tokens := make([]string, 0, len(attrs))
	for tok := range attrs {
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)
	values := make([]float64, len(tokens))
	for i, tok := range tokens {
		values[i] = attrs[tok]
	}
	return tokens, values
}
