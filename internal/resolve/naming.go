package resolve

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	acronyms = map[string]bool{
		"url": true, "id": true, "cta": true, "vip": true, "sop": true, "tbd": true,
		"ui": true, "ux": true, "api": true, "seo": true, "kpi": true, "faq": true, "pdf": true,
	}
)

// A cases.Caser is stateful, so each call gets its own.
func title(w string) string {
	return cases.Title(language.English).String(w)
}

// Normalize lowercases s and drops everything but letters and digits.
func Normalize(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(unicode.ToLower(r))
		}
	}
	return sb.String()
}

// Words splits an identifier written in any common convention.
func Words(s string) []string {
	return strings.FieldsFunc(ToSnake(s), func(r rune) bool { return r == '_' })
}

// ToSnake converts camelCase, Title Case, kebab-case and spaced names to snake_case.
func ToSnake(s string) string {
	var sb strings.Builder
	runes := []rune(strings.TrimSpace(s))
	for i, r := range runes {
		switch {
		case r == ' ' || r == '-' || r == '_' || r == '.' || r == '/':
			sb.WriteRune('_')
		case unicode.IsUpper(r):
			if i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])) {
				sb.WriteRune('_')
			}
			sb.WriteRune(unicode.ToLower(r))
		default:
			sb.WriteRune(r)
		}
	}
	out := sb.String()
	for strings.Contains(out, "__") {
		out = strings.ReplaceAll(out, "__", "_")
	}
	return strings.Trim(out, "_")
}

// ToCamel converts any convention to lowerCamelCase.
func ToCamel(s string) string {
	words := Words(s)
	for i, w := range words {
		if i == 0 {
			continue
		}
		words[i] = title(w)
	}
	return strings.Join(words, "")
}

// ToTitle converts any convention to space-separated Title Case.
func ToTitle(s string) string {
	words := Words(s)
	for i, w := range words {
		words[i] = title(w)
	}
	return strings.Join(words, " ")
}

// Humanize turns a data key into a display label ("due_date" -> "Due Date").
// Internal keys lose their leading underscores; known acronyms stay upper case.
func Humanize(key string) string {
	words := Words(strings.TrimLeft(key, "_"))
	for i, w := range words {
		if acronyms[w] {
			words[i] = strings.ToUpper(w)
			continue
		}
		words[i] = title(w)
	}
	return strings.Join(words, " ")
}

// variants lists deterministic rewrites of name in the order they are tried.
func variants(name string) []string {
	trimmed := strings.TrimSpace(name)
	candidates := []string{
		strings.ReplaceAll(trimmed, " ", "_"),
		strings.ReplaceAll(trimmed, "_", " "),
		ToSnake(trimmed),
		ToCamel(trimmed),
		ToTitle(trimmed),
		strings.ToLower(trimmed),
		strings.ToLower(strings.ReplaceAll(trimmed, "_", " ")),
		strings.ReplaceAll(ToTitle(trimmed), " ", "_"),
	}

	seen := map[string]bool{name: true}
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
