package extract

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"scribe.app/engine/internal/model"
	"scribe.app/engine/internal/resolve"
)

const (
	temporalWeight   = 0.4
	linguisticWeight = 0.3
	businessWeight   = 0.3

	// DetectedThreshold is the score at which a brief counts as urgent.
	DetectedThreshold = 7.0
)

type signal struct {
	pattern *regexp.Regexp
	score   float64
}

var (
	temporalKeywords = []signal{
		{regexp.MustCompile(`(?i)\b(asap|a\.s\.a\.p|urgent(ly)?|today|tonight|eod|end of (the )?day|immediately|right away)\b`), 10},
		{regexp.MustCompile(`(?i)\btomorrow\b`), 9},
		{regexp.MustCompile(`(?i)\b(this week|end of (the )?week|eow)\b`), 7},
		{regexp.MustCompile(`(?i)\bnext week\b`), 5},
	}

	exclaimRun    = regexp.MustCompile(`!{2,}`)
	capsWord      = regexp.MustCompile(`\b[A-Z]{4,}\b`)
	imperatives   = regexp.MustCompile(`(?i)\b(must|needs?|needed|required?|have to|has to|mandatory)\b`)
	consequences  = regexp.MustCompile(`(?i)(or we lose|otherwise|or else|will lose|can'?t miss|cannot miss|no extensions?|non-negotiable|critical|at risk|penalt(y|ies))`)
	vipLanguage   = regexp.MustCompile(`(?i)\b(vip|ceo|cmo|founder|executive|board|key (client|account)|top client|biggest client|largest client|flagship)\b`)
	moneyLanguage = regexp.MustCompile(`(?i)(\$\s?\d|\b(revenue|contract|invoice|sponsor(ship)?|investment|investors?|million|funding|paid media|ad spend)\b)`)
	namedDeadline = regexp.MustCompile(`(?i)\b(launch|event|premiere|conference|trade ?show|go[- ]live|release|summit|festival|keynote|webinar)\b`)

	ordinalSuffix = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)
	isoDate       = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

	dateLayouts = []string{
		"2006-01-02",
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04",
		"01/02/2006",
		"1/2/2006",
		"Jan 2, 2006",
		"January 2, 2006",
		"Jan 2 2006",
		"January 2 2006",
		"2 Jan 2006",
		"2 January 2006",
		"Monday, January 2, 2006",
		"Mon, Jan 2, 2006",
	}
	yearlessLayouts = []string{"Jan 2", "January 2", "2 Jan", "2 January", "1/2"}
)

// ScoreUrgency combines temporal, linguistic and business signals into a
// 0-10 score. It runs for every brief, whatever happened upstream.
func ScoreUrgency(brief model.Brief, now time.Time) model.Urgency {
	raw := model.Text(map[string]any(brief))

	temporal, temporalReason := temporalScore(brief, raw, now)
	linguistic := linguisticScore(raw)
	business := businessScore(raw)

	score := round1(temporalWeight*temporal + linguisticWeight*linguistic + businessWeight*business)

	reasons := []string{}
	if temporalReason != "" {
		reasons = append(reasons, temporalReason)
	}
	if linguistic > 0 {
		reasons = append(reasons, fmt.Sprintf("language intensity %.0f/10", linguistic))
	}
	if business > 0 {
		reasons = append(reasons, fmt.Sprintf("business context %.0f/10", business))
	}

	summary := fmt.Sprintf("Urgency %.1f/10", score)
	if len(reasons) > 0 {
		summary += ": " + strings.Join(reasons, "; ")
	}

	return model.Urgency{
		Detected: score >= DetectedThreshold,
		Score:    score,
		Level:    Level(score),
		Summary:  summary,
		Signals: model.UrgencySignals{
			Temporal:   temporal,
			Linguistic: linguistic,
			Business:   business,
		},
	}
}

func Level(score float64) model.UrgencyLevel {
	switch {
	case score >= 9:
		return model.UrgencyCritical
	case score >= 7:
		return model.UrgencyHigh
	case score >= 4:
		return model.UrgencyMedium
	default:
		return model.UrgencyLow
	}
}

// DaysScore maps whole days until the due date onto the temporal scale.
// Past dates score as urgent as a same-day deadline.
func DaysScore(days int) float64 {
	switch {
	case days <= 1:
		return 10
	case days <= 2:
		return 9
	case days <= 3:
		return 8
	case days <= 7:
		return 6
	case days <= 14:
		return 4
	case days <= 30:
		return 2
	default:
		return 0
	}
}

func temporalScore(brief model.Brief, raw string, now time.Time) (float64, string) {
	best, reason := 0.0, ""

	if m, ok := resolve.ResolveNested("due_date", brief); ok {
		if due, ok := ParseDate(model.Scalar(m.Value), now); ok {
			days := daysBetween(now, due)
			best = DaysScore(days)
			switch {
			case days < 0:
				reason = fmt.Sprintf("due %s (%d days ago)", due.Format("2006-01-02"), -days)
			case days == 1:
				reason = fmt.Sprintf("due %s (in 1 day)", due.Format("2006-01-02"))
			default:
				reason = fmt.Sprintf("due %s (in %d days)", due.Format("2006-01-02"), days)
			}
		}
	}

	for _, kw := range temporalKeywords {
		if kw.score <= best {
			continue
		}
		if hit := kw.pattern.FindString(raw); hit != "" {
			best = kw.score
			reason = fmt.Sprintf("mentions %q", strings.ToLower(hit))
		}
	}
	return best, reason
}

func linguisticScore(raw string) float64 {
	score := 0.0

	switch {
	case exclaimRun.MatchString(raw):
		score += 3
	case strings.Contains(raw, "!"):
		score++
	}

	switch n := len(capsWord.FindAllString(raw, -1)); {
	case n >= 3:
		score += 3
	case n > 0:
		score += 2
	}

	score += math.Min(3, float64(distinct(imperatives.FindAllString(raw, -1))))
	score += math.Min(4, 2*float64(distinct(consequences.FindAllString(raw, -1))))

	return math.Min(10, score)
}

func businessScore(raw string) float64 {
	score := 0.0
	if vipLanguage.MatchString(raw) {
		score += 4
	}
	if moneyLanguage.MatchString(raw) {
		score += 3
	}
	if namedDeadline.MatchString(raw) {
		score += 3
	}
	return math.Min(10, score)
}

// ParseDate reads the common ways briefs write a date. Dates without a year
// are placed in the current year, or the next one if that is well past.
func ParseDate(s string, now time.Time) (time.Time, bool) {
	s = strings.TrimSpace(ordinalSuffix.ReplaceAllString(s, "$1"))
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t, true
		}
	}
	if iso := isoDate.FindString(s); iso != "" {
		if t, err := time.ParseInLocation("2006-01-02", iso, now.Location()); err == nil {
			return t, true
		}
	}
	for _, layout := range yearlessLayouts {
		t, err := time.ParseInLocation(layout, s, now.Location())
		if err != nil {
			continue
		}
		t = t.AddDate(now.Year()-t.Year(), 0, 0)
		if now.Sub(t) > 30*24*time.Hour {
			t = t.AddDate(1, 0, 0)
		}
		return t, true
	}
	return time.Time{}, false
}

func daysBetween(now, due time.Time) int {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	d := due.In(loc)
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	return int(math.Round(day.Sub(today).Hours() / 24))
}

func distinct(matches []string) int {
	seen := map[string]bool{}
	for _, m := range matches {
		seen[strings.ToLower(m)] = true
	}
	return len(seen)
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
