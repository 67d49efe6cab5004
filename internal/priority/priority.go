// Package priority orders assembled sections by how much they matter for this
// brief. It never drops a section.
package priority

import (
	"cmp"
	"regexp"
	"slices"

	"scribe.app/engine/internal/match"
	"scribe.app/engine/internal/model"
)

// Base weights per heading concept. Unknown headings get defaultWeight.
var baseWeights = map[string]float64{
	string(match.RuleKeyDetails):   100,
	"timeline":                     90,
	"deliverables":                 85,
	"budget":                       80,
	"platforms":                    75,
	"objectives":                   70,
	"audience":                     65,
	"client":                       60,
	"creative":                     60,
	"technical":                    55,
	"music":                        45,
	"contacts":                     40,
	string(match.RuleReferences):   40,
	string(match.RuleBriefDetails): 35,
	string(match.RuleNotes):        35,
	string(match.RuleRawBrief):     30,
}

const (
	defaultWeight = 50

	// urgencyBoost is scaled by score/10.
	urgencyBoost  = 20
	conflictBoost = 15
	budgetBoost   = 15
	novelBoost    = 10
)

// Concepts that become more important when the brief is urgent or conflicts.
var (
	urgentConcepts = map[string]bool{string(match.RuleKeyDetails): true, "timeline": true, "deliverables": true}

	conflictConcepts = map[model.ConflictType]map[string]bool{
		model.ConflictDuration:    {"deliverables": true, "technical": true, string(match.RuleKeyDetails): true},
		model.ConflictMultiFormat: {"platforms": true, "technical": true, "deliverables": true},
	}

	budgetConstraint = regexp.MustCompile(`(?i)\b(limited|tight|low|small|fixed|modest|strict)\s+budget\b|\b(within|under|on a)\s+(the\s+)?budget\b|\bcost[- ]effective\b|\bno more than\s+\$?\d|\bbudget\s+(cap|ceiling|constraint)s?\b`)
)

// Section is one assembled section to rank.
type Section struct {
	Heading string
	Key     string
	// Novel marks content the template did not ask for (leftovers).
	Novel bool
	Score float64
}

// Signals are the brief-level inputs to the boosts.
type Signals struct {
	Urgency   model.Urgency
	Conflicts []model.Conflict
	// BriefText is the flattened brief used to detect budget constraints.
	BriefText string
}

// Prioritize scores every section and returns them highest first. Equal
// scores keep their document order.
func Prioritize(sections []Section, sig Signals) []Section {
	constrained := budgetConstraint.MatchString(sig.BriefText)

	out := make([]Section, len(sections))
	for i, s := range sections {
		s.Score = score(s, sig, constrained)
		out[i] = s
	}
	slices.SortStableFunc(out, func(a, b Section) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return out
}

// Headings returns the section headings in order.
func Headings(sections []Section) []string {
	out := make([]string, len(sections))
	for i, s := range sections {
		out[i] = s.Heading
	}
	return out
}

func score(s Section, sig Signals, constrained bool) float64 {
	concept := match.Concept(s.Heading)
	if concept == "" && s.Key != "" {
		concept = match.Concept(s.Key)
	}

	total := float64(defaultWeight)
	if w, ok := baseWeights[concept]; ok {
		total = w
	}

	if sig.Urgency.Detected && urgentConcepts[concept] {
		total += urgencyBoost * sig.Urgency.Score / 10
	}
	for _, c := range sig.Conflicts {
		if conflictConcepts[c.Type][concept] {
			total += conflictBoost
			break
		}
	}
	if constrained && concept == "budget" {
		total += budgetBoost
	}
	if s.Novel {
		total += novelBoost
	}
	return total
}
