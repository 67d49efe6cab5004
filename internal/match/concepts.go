package match

import (
	"regexp"

	"scribe.app/engine/internal/resolve"
	"scribe.app/engine/internal/template"
)

// concept maps heading vocabulary onto the key vocabulary that usually holds
// the data. Tables here are curated and overlap in places; order decides.
type concept struct {
	name    string
	heading []string
	keys    []string
}

var concepts = []concept{
	{"budget", []string{"budget", "cost", "pricing", "investment", "fee"}, []string{"budget", "cost", "pricing", "price", "financial", "spend", "fee", "rate"}},
	{"timeline", []string{"timeline", "schedule", "deadline", "dates", "delivery", "milestone"}, []string{"deadline", "due", "date", "timeline", "schedule", "milestone", "delivery"}},
	{"deliverables", []string{"deliverable", "assets", "outputs", "scope"}, []string{"deliverable", "asset", "output", "format", "scope"}},
	{"platforms", []string{"platform", "channel", "distribution", "placement"}, []string{"platform", "channel", "placement", "distribution"}},
	{"audience", []string{"audience", "demographic", "viewer", "target"}, []string{"audience", "demographic", "persona", "viewer", "target"}},
	{"objectives", []string{"objective", "goal", "kpi", "purpose", "success"}, []string{"objective", "goal", "kpi", "purpose", "success", "metric"}},
	{"creative", []string{"creative", "concept", "style", "tone", "look", "feel", "direction"}, []string{"creative", "style", "tone", "mood", "look", "visual", "concept", "direction"}},
	{"technical", []string{"technical", "spec", "format", "resolution"}, []string{"spec", "resolution", "aspect", "codec", "format", "duration", "technical", "length"}},
	{"music", []string{"music", "audio", "sound", "voice"}, []string{"music", "audio", "sound", "voiceover", "vo", "track"}},
	{"contacts", []string{"contact", "stakeholder", "team", "approver"}, []string{"contact", "email", "phone", "stakeholder", "owner", "producer", "approver"}},
	{"client", []string{"client", "brand", "customer", "company"}, []string{"client", "brand", "customer", "company", "account"}},
}

type platformName struct {
	name    string
	pattern *regexp.Regexp
}

var platformNames = []platformName{
	{"Instagram", regexp.MustCompile(`(?i)\b(instagram|insta)\b`)},
	{"TikTok", regexp.MustCompile(`(?i)\btik\s?tok\b`)},
	{"YouTube", regexp.MustCompile(`(?i)\byou\s?tube\b`)},
	{"Facebook", regexp.MustCompile(`(?i)\bfacebook\b`)},
	{"LinkedIn", regexp.MustCompile(`(?i)\blinkedin\b`)},
	{"Snapchat", regexp.MustCompile(`(?i)\bsnapchat\b`)},
	{"Pinterest", regexp.MustCompile(`(?i)\bpinterest\b`)},
	{"Vimeo", regexp.MustCompile(`(?i)\bvimeo\b`)},
	{"X", regexp.MustCompile(`(?i)\b(twitter|x\.com)\b`)},
}

// Heading vocabulary for the smart aggregation rules, in normalized form.
var (
	keyDetailsHeadings = []string{"keydetails", "projectdetails", "quickfacts", "ataglance", "jobdetails", "projectinfo", "keyinfo"}
	referenceHeadings  = []string{"reference", "links", "inspiration", "moodboard", "resources"}
	notesHeadings      = []string{"notes", "context", "interaction", "comments", "background"}
	rawBriefHeadings   = []string{"rawbrief", "originalbrief", "clientbrief", "briefasreceived", "originalrequest"}
	briefDetailHeading = []string{"briefdetails", "briefbreakdown"}

	notesKeyParts    = []string{"notes", "context", "comments", "interaction", "conversation"}
	rawBriefKeyNames = []string{"rawbrief", "originalbrief", "brief", "rawtext", "rawrequest", "request", "message", "clientmessage"}
)

var stopWords = map[string]bool{
	"and": true, "the": true, "of": true, "for": true, "a": true, "an": true, "to": true, "in": true, "on": true, "or": true,
}

// Concept classifies a heading: the smart rule name when one claims it,
// otherwise the first concept whose heading vocabulary it contains, or "".
func Concept(heading string) string {
	hn := resolve.Normalize(template.CleanHeading(heading))
	if hn == "" {
		return ""
	}
	for _, r := range smartRules {
		if containsAny(hn, r.headings) {
			return string(r.rule)
		}
	}
	for _, c := range concepts {
		if containsAny(hn, c.heading) {
			return c.name
		}
	}
	return ""
}
