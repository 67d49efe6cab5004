package resolve

import "sort"

// canonicalAliases maps a concept to the key names briefs commonly use for it.
// This is curated data, not a closed vocabulary; extend it as new intake forms appear.
var canonicalAliases = map[string][]string{
	"description":  {"brief_details", "raw_brief", "brief", "details", "summary", "overview", "project_description", "request"},
	"client":       {"client_name", "customer", "company", "brand", "account", "account_name"},
	"due_date":     {"deadline", "due", "delivery_date", "deliver_by", "launch_date", "go_live", "due_by"},
	"platforms":    {"platform", "channels", "channel", "placements", "social_platforms", "distribution"},
	"deliverables": {"deliverable", "assets", "outputs", "formats", "asset_list", "scope"},
	"budget":       {"cost", "pricing", "price", "spend", "financials", "budget_range"},
	"references":   {"links", "urls", "reference_links", "inspiration", "examples", "moodboard"},
	"notes":        {"interaction_notes", "context", "additional_notes", "comments", "conversation_notes"},
	"priority":     {"urgency_level", "importance"},
	"duration":     {"length", "runtime", "video_length", "run_time"},
	"audience":     {"target_audience", "demographic", "viewers", "persona"},
	"objective":    {"goal", "goals", "objectives", "purpose", "kpis"},
}

// Aliases returns the concept group name belongs to (canonical name first),
// or nil when name is not part of any group.
func Aliases(name string) []string {
	n := Normalize(name)
	for _, canonical := range aliasOrder {
		aliases := canonicalAliases[canonical]
		if Normalize(canonical) == n {
			return append([]string{canonical}, aliases...)
		}
		for _, a := range aliases {
			if Normalize(a) == n {
				return append([]string{canonical}, aliases...)
			}
		}
	}
	return nil
}

var aliasOrder = func() []string {
	keys := make([]string, 0, len(canonicalAliases))
	for k := range canonicalAliases {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}()
