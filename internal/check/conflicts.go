package check

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"scribe.app/engine/internal/model"
	"scribe.app/engine/internal/resolve"
)

const conflictEmoji = "⚠️"

var (
	durationPattern = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*-?\s*(seconds?|secs?|s|minutes?|mins?)\b`)

	verticalPlatforms = []platform{
		{"TikTok", regexp.MustCompile(`(?i)\btik\s?tok\b`)},
		{"Instagram", regexp.MustCompile(`(?i)\b(?:instagram|insta|ig)\b`)},
		{"Reels", regexp.MustCompile(`(?i)\breels?\b`)},
		{"Stories", regexp.MustCompile(`(?i)\bstories\b`)},
		{"Shorts", regexp.MustCompile(`(?i)\bshorts\b`)},
		{"Snapchat", regexp.MustCompile(`(?i)\bsnapchat\b`)},
	}
	horizontalPlatforms = []platform{
		{"YouTube", regexp.MustCompile(`(?i)\byou\s?tube\b`)},
		{"LinkedIn video", regexp.MustCompile(`(?i)\blinkedin\s+video\b`)},
		{"Facebook video", regexp.MustCompile(`(?i)\bfacebook\s+video\b`)},
		{"Vimeo", regexp.MustCompile(`(?i)\bvimeo\b`)},
		{"TV", regexp.MustCompile(`(?i)\b(?:tv|ctv|television)\b`)},
		{"Broadcast", regexp.MustCompile(`(?i)\bbroadcast\b`)},
	}

	// "YouTube Shorts" is vertical; it must not count as a YouTube mention.
	youtubeShorts = regexp.MustCompile(`(?i)\byou\s?tube\s+shorts\b`)
)

type platform struct {
	name    string
	pattern *regexp.Regexp
}

// Duration is one duration mention found in brief text.
type Duration struct {
	Text    string
	Seconds float64
}

// Conflicts reports factual contradictions in the brief: more than one
// distinct duration, or vertical and horizontal platforms requested together.
func Conflicts(brief model.Brief) []model.Conflict {
	var conflicts []model.Conflict
	if c, ok := durationConflict(model.Text(map[string]any(brief))); ok {
		conflicts = append(conflicts, c)
	}
	if m, ok := resolve.ResolveNested("platforms", brief); ok {
		if c, ok := formatConflict(model.Text(m.Value)); ok {
			conflicts = append(conflicts, c)
		}
	}
	return conflicts
}

// Durations returns the distinct durations mentioned in text, in order of
// first appearance. Mentions equal in seconds count once.
func Durations(text string) []Duration {
	var out []Duration
	seen := map[float64]bool{}
	for _, m := range durationPattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil || n <= 0 {
			continue
		}
		secs := n
		if strings.HasPrefix(strings.ToLower(m[2]), "m") {
			secs = n * 60
		}
		if seen[secs] {
			continue
		}
		seen[secs] = true
		out = append(out, Duration{Text: strings.TrimSpace(m[0]), Seconds: secs})
	}
	return out
}

func durationConflict(text string) (model.Conflict, bool) {
	durations := Durations(text)
	if len(durations) < 2 {
		return model.Conflict{}, false
	}
	mentions := make([]string, len(durations))
	for i, d := range durations {
		mentions[i] = d.Text
	}
	return model.Conflict{
		Type:    model.ConflictDuration,
		Emoji:   conflictEmoji,
		Title:   "Conflicting durations",
		Message: fmt.Sprintf("The brief mentions %d different durations: %s.", len(durations), strings.Join(mentions, ", ")),
	}, true
}

func formatConflict(platforms string) (model.Conflict, bool) {
	vertical := matchPlatforms(verticalPlatforms, platforms)
	horizontal := matchPlatforms(horizontalPlatforms, youtubeShorts.ReplaceAllString(platforms, "shorts"))
	if len(vertical) == 0 || len(horizontal) == 0 {
		return model.Conflict{}, false
	}
	return model.Conflict{
		Type:  model.ConflictMultiFormat,
		Emoji: conflictEmoji,
		Title: "Multiple aspect ratios",
		Message: fmt.Sprintf("Platforms include vertical 9:16 placements (%s) and horizontal 16:9 placements (%s).",
			strings.Join(vertical, ", "), strings.Join(horizontal, ", ")),
	}, true
}

func matchPlatforms(candidates []platform, text string) []string {
	var out []string
	for _, p := range candidates {
		if p.pattern.MatchString(text) {
			out = append(out, p.name)
		}
	}
	return out
}
