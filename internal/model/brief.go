package model

import (
	"fmt"
	"sort"
	"strings"
)

// Brief is the raw intake record. Values follow the encoding/json shapes:
// scalars, []any, and map[string]any nested to any depth. A brief is read-only
// once received; anything derived from it works on a CloneValue copy.
type Brief map[string]any

type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityStandard Complexity = "standard"
	ComplexityComplex  Complexity = "complex"
)

// ParseComplexity maps routing hints onto a known tier, defaulting to standard.
func ParseComplexity(s string) Complexity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "simple", "low", "basic":
		return ComplexitySimple
	case "complex", "high", "advanced":
		return ComplexityComplex
	default:
		return ComplexityStandard
	}
}

// Clone returns a deep copy of the brief as a plain map.
func (b Brief) Clone() map[string]any {
	if b == nil {
		return map[string]any{}
	}
	return CloneValue(map[string]any(b)).(map[string]any)
}

// CloneValue deep-copies maps and slices; scalars are returned as-is.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = CloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = CloneValue(val)
		}
		return out
	default:
		return v
	}
}

// IsEmptyValue reports whether v carries no content.
func IsEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

// Scalar renders a scalar value as display text.
func Scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case bool:
		if t {
			return "Yes"
		}
		return "No"
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Text flattens every string and number in v into one newline-separated
// string. Map keys are visited in sorted order so the output is stable.
func Text(v any) string {
	var parts []string
	collectText(v, &parts)
	return strings.Join(parts, "\n")
}

func collectText(v any, parts *[]string) {
	switch t := v.(type) {
	case map[string]any:
		keys := SortedKeys(t)
		for _, k := range keys {
			collectText(t[k], parts)
		}
	case []any:
		for _, item := range t {
			collectText(item, parts)
		}
	case nil:
	default:
		if s := Scalar(t); s != "" {
			*parts = append(*parts, s)
		}
	}
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
