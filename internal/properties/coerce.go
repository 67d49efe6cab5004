package properties

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"scribe.app/engine/internal/extract"
	"scribe.app/engine/internal/match"
	"scribe.app/engine/internal/model"
	"scribe.app/engine/internal/resolve"
)

var (
	numberPattern = regexp.MustCompile(`-?\d[\d,]*(?:\.\d+)?\s*[kKmM]?`)
	listSeparator = regexp.MustCompile(`\s*(?:,|;|\n|\band\b)\s*`)
)

// Coerce converts text into the value shape the field type expects. Text that
// cannot be converted is returned as-is so validation can report it.
func Coerce(f Field, raw string, now time.Time) any {
	raw = strings.TrimSpace(raw)
	switch f.Type {
	case TypeNumber:
		if n, ok := parseNumber(raw); ok {
			return n
		}
	case TypeCheckbox:
		switch strings.ToLower(raw) {
		case "true", "yes", "y", "1", "checked":
			return true
		case "false", "no", "n", "0", "unchecked":
			return false
		}
	case TypeSelect:
		return canonicalOption(f.Options, raw)
	case TypeMultiSelect, TypePeople:
		var items []any
		for _, part := range listSeparator.Split(raw, -1) {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, canonicalOption(f.Options, part))
			}
		}
		return items
	case TypeDate:
		if t, ok := extract.ParseDate(raw, now); ok {
			return t.Format(time.DateOnly)
		}
	}
	return raw
}

// Prefill resolves each schema field directly against the data, keeping only
// values that validate. It needs no reasoning service.
func Prefill(schema Schema, data map[string]any, now time.Time) map[string]any {
	visible := match.Visible(data, nil)
	urgency, hasUrgency := model.ExtractedData(data).Urgency()

	out := map[string]any{}
	for _, f := range schema {
		var raw string
		if v, ok := resolve.Resolve(f.Name, visible); ok && !model.IsEmptyValue(v) {
			raw = textOf(v)
		} else if hasUrgency && isPriorityField(f) {
			raw = string(urgency.Level)
		}
		if raw == "" {
			continue
		}
		v := Coerce(f, raw, now)
		if checkValue(f, v) == "" {
			out[f.Name] = v
		}
	}
	return out
}

func isPriorityField(f Field) bool {
	if f.Type != TypeSelect && f.Type != TypeRichText {
		return false
	}
	n := resolve.Normalize(f.Name)
	return n == "priority" || n == "urgency"
}

// textOf flattens a value to one line for coercion. Lists join with commas.
func textOf(v any) string {
	switch t := v.(type) {
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := textOf(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		if inner, ok := t["value"]; ok {
			return textOf(inner)
		}
		return strings.ReplaceAll(model.Text(t), "\n", "; ")
	default:
		return model.Scalar(t)
	}
}

func parseNumber(raw string) (float64, bool) {
	m := numberPattern.FindString(raw)
	if m == "" {
		return 0, false
	}
	m = strings.ReplaceAll(strings.TrimSpace(m), ",", "")
	mult := 1.0
	switch m[len(m)-1] {
	case 'k', 'K':
		mult, m = 1_000, strings.TrimSpace(m[:len(m)-1])
	case 'm', 'M':
		mult, m = 1_000_000, strings.TrimSpace(m[:len(m)-1])
	}
	n, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return n * mult, true
}

func canonicalOption(options []string, s string) string {
	for _, o := range options {
		if strings.EqualFold(o, s) {
			return o
		}
	}
	return s
}
