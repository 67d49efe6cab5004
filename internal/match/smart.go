package match

import (
	"regexp"
	"strings"

	"scribe.app/engine/internal/check"
	"scribe.app/engine/internal/model"
	"scribe.app/engine/internal/resolve"
)

// Rule names a smart aggregation rule.
type Rule string

const (
	RuleKeyDetails   Rule = "key_details"
	RuleReferences   Rule = "references"
	RuleNotes        Rule = "notes"
	RuleRawBrief     Rule = "raw_brief"
	RuleBriefDetails Rule = "brief_details"
)

// SmartKey is the synthetic matched key recorded for a smart rule.
func SmartKey(r Rule) string {
	return "_smart_" + string(r)
}

var (
	urlPattern      = regexp.MustCompile(`https?://[^\s<>"'\])]+`)
	relativeDueDate = regexp.MustCompile(`(?i)\b(today|tonight|tomorrow|asap|this week|next week|end of (the )?(day|week))\b`)
)

type smartRule struct {
	rule     Rule
	headings []string
	collect  func(data, visible map[string]any) (any, []string)
}

var smartRules = []smartRule{
	{RuleRawBrief, rawBriefHeadings, rawBrief},
	{RuleBriefDetails, briefDetailHeading, briefDetails},
	{RuleKeyDetails, keyDetailsHeadings, keyDetails},
	{RuleReferences, referenceHeadings, references},
	{RuleNotes, notesHeadings, notes},
}

func keyDetails(data, _ map[string]any) (any, []string) {
	// Key details repeat facts other sections may already show.
	visible := Visible(data, nil)
	out := map[string]any{}
	var used []string

	take := func(label, name string) bool {
		m, ok := resolve.ResolveKey(name, visible)
		if !ok || model.IsEmptyValue(m.Value) {
			return false
		}
		out[label] = compact(m.Value)
		used = append(used, m.Key)
		return true
	}

	text := briefText(data)

	take("Client", "client")

	if !take("Due Date", "due_date") {
		if d, ok := data[model.KeyDeadline].(string); ok && d != "" {
			out["Due Date"] = strings.TrimSpace(strings.TrimPrefix(d, "Deadline:"))
		} else if phrase := relativeDueDate.FindString(text); phrase != "" {
			out["Due Date"] = strings.ToLower(phrase)
		}
	}

	if !take("Platform", "platforms") {
		var found []string
		for _, p := range platformNames {
			if p.pattern.MatchString(text) {
				found = append(found, p.name)
			}
		}
		if len(found) > 0 {
			out["Platform"] = strings.Join(found, ", ")
		}
	}

	if !take("Duration", "duration") {
		if ds := check.Durations(text); len(ds) > 0 {
			parts := make([]string, len(ds))
			for i, d := range ds {
				parts[i] = d.Text
			}
			out["Duration"] = strings.Join(parts, ", ")
		}
	}

	if !take("Priority", "priority") {
		if u, ok := model.ExtractedData(data).Urgency(); ok && u.Level != "" && u.Level != model.UrgencyLow {
			out["Priority"] = resolve.ToTitle(string(u.Level))
		}
	}

	if c, ok := data[model.KeyComplexity].(string); ok && c != "" {
		out["Complexity"] = resolve.ToTitle(c)
	}

	if len(out) == 0 {
		return nil, nil
	}
	return out, used
}

func references(data, visible map[string]any) (any, []string) {
	urls := URLs(withoutSignals(data))
	if len(urls) == 0 {
		return nil, nil
	}

	var used []string
	for _, k := range model.SortedKeys(visible) {
		text := model.Text(visible[k])
		if text != "" && strings.TrimSpace(strings.Trim(urlPattern.ReplaceAllString(text, ""), " ,;\n\t")) == "" {
			used = append(used, k)
		}
	}

	items := make([]any, len(urls))
	for i, u := range urls {
		items[i] = u
	}
	return items, used
}

func notes(_, visible map[string]any) (any, []string) {
	var keys []string
	for _, k := range model.SortedKeys(visible) {
		nk := resolve.Normalize(k)
		for _, part := range notesKeyParts {
			if strings.Contains(nk, part) && !model.IsEmptyValue(visible[k]) {
				keys = append(keys, k)
				break
			}
		}
	}
	switch len(keys) {
	case 0:
		return nil, nil
	case 1:
		return visible[keys[0]], keys
	default:
		out := make(map[string]any, len(keys))
		for _, k := range keys {
			out[k] = visible[k]
		}
		return out, keys
	}
}

func rawBrief(data, visible map[string]any) (any, []string) {
	for _, want := range rawBriefKeyNames {
		for _, k := range model.SortedKeys(visible) {
			if resolve.Normalize(k) != want {
				continue
			}
			if s, ok := visible[k].(string); ok && strings.TrimSpace(s) != "" {
				return s, []string{k}
			}
		}
	}
	if orig, ok := data[model.KeyOriginalBrief].(map[string]any); ok {
		for _, want := range rawBriefKeyNames {
			for _, k := range model.SortedKeys(orig) {
				if s, ok := orig[k].(string); ok && resolve.Normalize(k) == want && strings.TrimSpace(s) != "" {
					return s, []string{k}
				}
			}
		}
	}
	return nil, nil
}

func briefDetails(data, _ map[string]any) (any, []string) {
	for _, k := range []string{model.KeyBriefDetailsSections, model.KeyBriefDetails} {
		if v, ok := data[k]; ok && !model.IsEmptyValue(v) {
			return v, []string{k}
		}
	}
	return nil, nil
}

// briefText flattens everything the brief said, leaving out the computed
// urgency and conflict entries.
func briefText(data map[string]any) string {
	return model.Text(withoutSignals(data))
}

func withoutSignals(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if k == model.KeyUrgency || k == model.KeyConflicts {
			continue
		}
		out[k] = v
	}
	return out
}

// URLs returns every distinct URL found anywhere in v, in the order a
// sorted-key walk meets them.
func URLs(v any) []string {
	var out []string
	seen := map[string]bool{}
	for _, line := range strings.Split(model.Text(v), "\n") {
		for _, u := range urlPattern.FindAllString(line, -1) {
			u = strings.TrimRight(u, ".,;:!?")
			if !seen[u] {
				seen[u] = true
				out = append(out, u)
			}
		}
	}
	return out
}

// compact joins scalar lists so they read as one line.
func compact(v any) any {
	items, ok := v.([]any)
	if !ok {
		return v
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		switch item.(type) {
		case map[string]any, []any:
			return v
		}
		if s := model.Scalar(item); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}
