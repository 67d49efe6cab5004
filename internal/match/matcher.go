// Package match finds the brief data that belongs under a template heading.
package match

import (
	"strings"

	"scribe.app/engine/internal/model"
	"scribe.app/engine/internal/resolve"
	"scribe.app/engine/internal/template"
)

type Stage string

const (
	StageSmart       Stage = "smart"
	StageResolver    Stage = "resolver"
	StageConcept     Stage = "concept"
	StageSimilarity  Stage = "similarity"
	StageWordOverlap Stage = "word_overlap"
)

// Result is the data found for one heading. MatchedKey is the data key, or a
// _smart_ key for aggregations; Consumed lists every real key the result used.
type Result struct {
	Data       any
	MatchedKey string
	Consumed   []string
	Stage      Stage
	Rule       Rule
}

// Match runs the stages in order: smart aggregation, the field resolver,
// the concept table, whole-key similarity, then word overlap. Keys in
// consumed are not offered to the later stages.
func Match(heading string, data map[string]any, consumed map[string]bool) (Result, bool) {
	clean := template.CleanHeading(heading)
	hn := resolve.Normalize(clean)
	if hn == "" {
		return Result{}, false
	}
	visible := Visible(data, consumed)

	for _, r := range smartRules {
		if !containsAny(hn, r.headings) {
			continue
		}
		if v, used := r.collect(data, visible); !model.IsEmptyValue(v) {
			return Result{Data: v, MatchedKey: SmartKey(r.rule), Consumed: used, Stage: StageSmart, Rule: r.rule}, true
		}
	}

	if m, ok := resolve.ResolveKey(clean, visible); ok && !model.IsEmptyValue(m.Value) {
		return hit(m.Key, m.Value, StageResolver), true
	}

	keys := model.SortedKeys(visible)

	for _, c := range concepts {
		if !containsAny(hn, c.heading) {
			continue
		}
		for _, k := range keys {
			if keyMatches(k, c.keys) && !model.IsEmptyValue(visible[k]) {
				return hit(k, visible[k], StageConcept), true
			}
		}
	}

	bestKey, bestScore := "", resolve.SimilarityThreshold
	for _, k := range keys {
		if model.IsEmptyValue(visible[k]) {
			continue
		}
		if s := resolve.Similarity(hn, resolve.Normalize(k)); s > bestScore {
			bestKey, bestScore = k, s
		}
	}
	if bestKey != "" {
		return hit(bestKey, visible[bestKey], StageSimilarity), true
	}

	words := headingWords(clean)
	if len(words) == 0 {
		return Result{}, false
	}
	need := min(2, len(words))
	bestKey, bestCount := "", 0
	for _, k := range keys {
		if model.IsEmptyValue(visible[k]) {
			continue
		}
		nk := resolve.Normalize(k)
		count := 0
		for _, w := range words {
			if strings.Contains(nk, w) {
				count++
			}
		}
		if count >= need && count > bestCount {
			bestKey, bestCount = k, count
		}
	}
	if bestKey != "" {
		return hit(bestKey, visible[bestKey], StageWordOverlap), true
	}

	return Result{}, false
}

// Visible filters out internal metadata (keys starting with "_"), the
// urgency, conflict and complexity entries, and keys already consumed.
func Visible(data map[string]any, consumed map[string]bool) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if IsInternal(k) || consumed[k] {
			continue
		}
		out[k] = v
	}
	return out
}

// IsInternal reports keys that are never section data.
func IsInternal(key string) bool {
	switch key {
	case model.KeyUrgency, model.KeyConflicts, model.KeyComplexity:
		return true
	}
	return strings.HasPrefix(key, "_")
}

func hit(key string, value any, stage Stage) Result {
	return Result{Data: value, MatchedKey: key, Consumed: []string{key}, Stage: stage}
}

func headingWords(heading string) []string {
	var out []string
	for _, w := range resolve.Words(heading) {
		w = resolve.Normalize(w)
		if len(w) < 2 || stopWords[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}

// minFragment is the shortest key fragment matched inside a word. Shorter
// fragments ("vo", "due", "rate") must be a whole word of the key, optionally
// plural, so favorite_color is not music and corporate_partner is not budget.
const minFragment = 5

func keyMatches(key string, fragments []string) bool {
	nk := resolve.Normalize(key)
	words := resolve.Words(key)
	for _, f := range fragments {
		if len(f) >= minFragment {
			if strings.Contains(nk, f) {
				return true
			}
			continue
		}
		for _, w := range words {
			if w == f || w == f+"s" {
				return true
			}
		}
	}
	return false
}

func containsAny(s string, parts []string) bool {
	for _, p := range parts {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
