package assemble

import (
	"context"
	"strings"

	"scribe.app/engine/internal/block"
	"scribe.app/engine/internal/generate"
	"scribe.app/engine/internal/match"
	"scribe.app/engine/internal/model"
	"scribe.app/engine/internal/priority"
	"scribe.app/engine/internal/resolve"
)

const AdditionalInformation = "Additional Information"

// denied are brief keys never listed as leftovers: internal metadata and
// fields the record already carries as properties. Compared normalized.
var denied = map[string]bool{}

func init() {
	for _, k := range []string{
		model.KeyOriginalBrief, model.KeyUrgency, model.KeyConflicts, model.KeyComplexity,
		"client", "due_date", "status", "priority", "record_id", "created_at", "updated_at",
		"id", "template_type", "urgent", "deadline",
	} {
		denied[resolve.Normalize(k)] = true
	}
}

// synthesizedOnly are extraction keys that restate the brief itself and are
// never listed from the combined data.
var synthesizedOnly = map[string]bool{
	model.KeyBriefDetails:         true,
	model.KeyBriefDetailsSections: true,
}

// leftover is one field for the Additional Information section.
type leftover struct {
	key   string
	value any
}

// leftovers returns the brief keys no section used, sorted, followed by the
// keys extraction added that carry something the brief does not already say.
func (a *assembler) leftovers(brief model.Brief) []leftover {
	var out []leftover
	for _, k := range model.SortedKeys(brief) {
		v := brief[k]
		if match.IsInternal(k) || model.IsEmptyValue(v) || a.covered(k, v) {
			continue
		}
		out = append(out, leftover{key: k, value: v})
	}

	said := map[string]bool{}
	for k, v := range brief {
		if !match.IsInternal(k) {
			said[flatText(v)] = true
		}
	}
	for _, k := range model.SortedKeys(a.data) {
		if _, ok := brief[k]; ok || synthesizedOnly[k] {
			continue
		}
		v := a.data[k]
		if match.IsInternal(k) || model.IsEmptyValue(v) || a.covered(k, v) || said[flatText(v)] {
			continue
		}
		out = append(out, leftover{key: k, value: v})
	}
	return out
}

// covered reports whether key was used by a section, is on the deny-list, or
// holds the same value as a used key that means the same thing.
func (a *assembler) covered(key string, value any) bool {
	n := resolve.Normalize(key)
	if a.consumed[key] || denied[n] {
		return true
	}
	aliases := map[string]bool{}
	for _, alias := range resolve.Aliases(resolve.ToSnake(key)) {
		aliases[resolve.Normalize(alias)] = true
	}
	for k := range a.consumed {
		kn := resolve.Normalize(k)
		if kn == n {
			return true
		}
		if aliases[kn] && flatText(a.data[k]) == flatText(value) {
			return true
		}
	}
	return false
}

// flatText is the comparable form of a value: its text with runs of
// whitespace collapsed, lower-cased. Implied defaults compare by their value.
func flatText(v any) string {
	if obj, ok := v.(map[string]any); ok && len(obj) == 2 {
		if inner, ok := obj["value"]; ok {
			if _, ok := obj["confidence"]; ok {
				v = inner
			}
		}
	}
	return strings.ToLower(strings.Join(strings.Fields(model.Text(v)), " "))
}

// appendLeftovers adds the Additional Information section. Each key keeps its
// original spelling in the sub-heading and its value is rendered verbatim.
func (a *assembler) appendLeftovers(ctx context.Context, brief model.Brief) {
	keys := a.leftovers(brief)
	if len(keys) == 0 {
		return
	}

	a.out = append(a.out, block.Heading(2, AdditionalInformation))
	for _, l := range keys {
		title := resolve.Humanize(l.key) + " (" + l.key + ")"
		a.out = append(a.out, block.Heading(3, title))
		a.out = append(a.out, a.verbatim(ctx, l.value)...)
		a.sections = append(a.sections, priority.Section{Heading: title, Key: l.key, Novel: true})
		a.stats.Leftovers++
	}
}

func (a *assembler) verbatim(ctx context.Context, v any) []block.Block {
	s, ok := v.(string)
	if !ok {
		return a.gen.Generate(ctx, generate.Request{Value: v, Mechanical: true})
	}
	var out []block.Block
	for _, chunk := range generate.Chunk(s, a.gen.MaxChars()) {
		out = append(out, block.Paragraph(block.Text(chunk)...))
	}
	if len(out) == 0 {
		out = append(out, block.Paragraph(block.Text(s)...))
	}
	return out
}
