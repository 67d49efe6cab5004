package extract

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"scribe.app/engine/internal/model"
	"scribe.app/engine/internal/resolve"
)

var (
	ErrUnparsable = errors.New("response is not a JSON object")
	errNoReasoner = errors.New("no reasoning service configured")

	fencePattern   = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")
	headerLine     = regexp.MustCompile(`^\s*(?:#{1,6}\s*)?(?:\*\*)?([A-Z][A-Za-z0-9 /&()'+-]{1,60}?)(?:\*\*)?\s*:(?:\*\*)?\s*(.*)$`)
	urgentKeywords = regexp.MustCompile(`(?i)\b(asap|urgent(ly)?|rush|emergency|immediately|today|tomorrow|tight deadline)\b`)
)

// ParseObject reads a JSON object out of untrusted model output: fences are
// stripped first, then the outermost braces are tried if the whole text fails.
func ParseObject(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err == nil && obj != nil {
		return obj, nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, ErrUnparsable
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &obj); err != nil || obj == nil {
		return nil, ErrUnparsable
	}
	return obj, nil
}

// Clean drops empty top-level fields and explodes a brief_details text blob
// into brief_details_sections keyed by its "Header Name:" lines.
func Clean(obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		if model.IsEmptyValue(v) {
			continue
		}
		out[k] = v
	}

	if blob, ok := out[model.KeyBriefDetails].(string); ok {
		if sections := ExplodeSections(blob); len(sections) > 0 {
			delete(out, model.KeyBriefDetails)
			out[model.KeyBriefDetailsSections] = sections
		}
	}
	return out
}

// ExplodeSections splits text on header lines. Text before the first header
// is kept under "overview". Returns nil when the text has no headers.
func ExplodeSections(text string) map[string]any {
	sections := map[string]any{}
	var (
		current string
		buf     []string
		headers int
	)

	flush := func() {
		body := strings.TrimSpace(strings.Join(buf, "\n"))
		buf = buf[:0]
		if body == "" {
			return
		}
		key := current
		if key == "" {
			key = "overview"
		}
		if prev, ok := sections[key].(string); ok {
			body = prev + "\n" + body
		}
		sections[key] = body
	}

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		m := headerLine.FindStringSubmatch(line)
		if m == nil || strings.Contains(m[1], "http") {
			buf = append(buf, line)
			continue
		}
		flush()
		headers++
		current = resolve.ToSnake(strings.TrimSpace(m[1]))
		if rest := strings.TrimSpace(m[2]); rest != "" {
			buf = append(buf, rest)
		}
	}
	flush()

	if headers == 0 {
		return nil
	}
	return sections
}

// Fallback is the minimal object used when extraction fails: the original
// brief, an urgency flag from keywords, and the literal deadline if any.
func Fallback(brief model.Brief) map[string]any {
	out := map[string]any{
		model.KeyOriginalBrief: brief.Clone(),
		model.KeyUrgent:        urgentKeywords.MatchString(model.Text(map[string]any(brief))),
	}
	if m, ok := resolve.ResolveNested("due_date", brief); ok && !model.IsEmptyValue(m.Value) {
		out[model.KeyDeadline] = "Deadline: " + model.Scalar(m.Value)
	}
	return out
}
