// Package resolve finds the value a brief holds for a named field when the
// brief may spell that field in any naming convention.
package resolve

import (
	"strings"

	"scribe.app/engine/internal/model"
)

const (
	// SimilarityThreshold gates fuzzy matches; anything at or below it is a miss.
	SimilarityThreshold = 0.7

	maxNestedDepth = 4
)

// Match is a resolved field.
type Match struct {
	Key   string
	Value any
	Stage Stage
}

// Stage records which step of the cascade produced a match.
type Stage string

const (
	StageExact      Stage = "exact"
	StageVariant    Stage = "variant"
	StageNormalized Stage = "normalized"
	StageContains   Stage = "contains"
	StageAlias      Stage = "alias"
)

// Resolve returns the value data holds for name, or (nil, false).
func Resolve(name string, data map[string]any) (any, bool) {
	m, ok := ResolveKey(name, data)
	if !ok {
		return nil, false
	}
	return m.Value, true
}

// ResolveKey runs the matching cascade and reports which key matched:
// exact key, naming-convention rewrites, normalized equality, normalized
// containment gated by similarity, then the canonical alias table.
// Keys are scanned in sorted order so the result does not depend on map order.
func ResolveKey(name string, data map[string]any) (Match, bool) {
	if len(data) == 0 || name == "" {
		return Match{}, false
	}

	if v, ok := data[name]; ok {
		return Match{Key: name, Value: v, Stage: StageExact}, true
	}

	for _, variant := range variants(name) {
		if v, ok := data[variant]; ok {
			return Match{Key: variant, Value: v, Stage: StageVariant}, true
		}
	}

	target := Normalize(name)
	if target == "" {
		return Match{}, false
	}
	keys := model.SortedKeys(data)

	for _, k := range keys {
		if Normalize(k) == target {
			return Match{Key: k, Value: data[k], Stage: StageNormalized}, true
		}
	}

	if m, ok := bestContaining(target, keys, data); ok {
		return m, true
	}

	if aliases := Aliases(name); aliases != nil {
		wanted := make(map[string]bool, len(aliases))
		for _, a := range aliases {
			wanted[Normalize(a)] = true
		}
		for _, k := range keys {
			if wanted[Normalize(k)] {
				return Match{Key: k, Value: data[k], Stage: StageAlias}, true
			}
		}
	}

	return Match{}, false
}

// ResolveNested resolves name at the top level first, then inside nested
// objects depth-first. The returned key is the innermost key.
func ResolveNested(name string, data map[string]any) (Match, bool) {
	return resolveNested(name, data, 0)
}

func resolveNested(name string, data map[string]any, depth int) (Match, bool) {
	if m, ok := ResolveKey(name, data); ok {
		return m, true
	}
	if depth >= maxNestedDepth {
		return Match{}, false
	}
	for _, k := range model.SortedKeys(data) {
		child, ok := data[k].(map[string]any)
		if !ok {
			continue
		}
		if m, ok := resolveNested(name, child, depth+1); ok {
			return m, true
		}
	}
	return Match{}, false
}

func bestContaining(target string, keys []string, data map[string]any) (Match, bool) {
	var best Match
	bestScore := SimilarityThreshold
	for _, k := range keys {
		nk := Normalize(k)
		if nk == "" || !(strings.Contains(nk, target) || strings.Contains(target, nk)) {
			continue
		}
		if score := Similarity(nk, target); score > bestScore {
			best = Match{Key: k, Value: data[k], Stage: StageContains}
			bestScore = score
		}
	}
	return best, best.Key != ""
}
