package model

import "encoding/json"

// Well-known keys in ExtractedData.
const (
	KeyOriginalBrief        = "_original_brief"
	KeyUrgency              = "urgency"
	KeyConflicts            = "conflicts"
	KeyComplexity           = "complexity"
	KeyBriefDetails         = "brief_details"
	KeyBriefDetailsSections = "brief_details_sections"
	KeyUrgent               = "urgent"
	KeyDeadline             = "deadline"
)

// ExtractedData is the cleaned, aliased and synthesized copy of a brief.
// Implied defaults are stored as {"value": ..., "confidence": ...} objects.
type ExtractedData map[string]any

type UrgencyLevel string

const (
	UrgencyCritical UrgencyLevel = "critical"
	UrgencyHigh     UrgencyLevel = "high"
	UrgencyMedium   UrgencyLevel = "medium"
	UrgencyLow      UrgencyLevel = "low"
)

type UrgencySignals struct {
	Temporal   float64 `json:"temporal"`
	Linguistic float64 `json:"linguistic"`
	Business   float64 `json:"business"`
}

type Urgency struct {
	Detected bool           `json:"detected"`
	Score    float64        `json:"score"`
	Level    UrgencyLevel   `json:"level"`
	Summary  string         `json:"summary"`
	Signals  UrgencySignals `json:"signals"`
}

type ConflictType string

const (
	ConflictDuration    ConflictType = "duration_contradiction"
	ConflictMultiFormat ConflictType = "multi_format"
)

// Conflict is a factual contradiction inside the brief. Messages state what
// the brief says and never recommend anything.
type Conflict struct {
	Type    ConflictType `json:"type"`
	Emoji   string       `json:"emoji"`
	Title   string       `json:"title"`
	Message string       `json:"message"`
}

// Flag is an advisory completeness note for a core field.
type Flag struct {
	Field  string `json:"field"`
	Label  string `json:"label"`
	Reason string `json:"reason"`
}

// SetUrgency stores u under KeyUrgency in its JSON shape.
func (d ExtractedData) SetUrgency(u Urgency) {
	d[KeyUrgency] = toMap(u)
}

// Urgency decodes the urgency object if present.
func (d ExtractedData) Urgency() (Urgency, bool) {
	var u Urgency
	raw, ok := d[KeyUrgency]
	if !ok {
		return u, false
	}
	if typed, ok := raw.(Urgency); ok {
		return typed, true
	}
	if err := remarshal(raw, &u); err != nil {
		return Urgency{}, false
	}
	return u, true
}

// SetConflicts stores the conflict list under KeyConflicts.
func (d ExtractedData) SetConflicts(conflicts []Conflict) {
	items := make([]any, 0, len(conflicts))
	for _, c := range conflicts {
		items = append(items, toMap(c))
	}
	d[KeyConflicts] = items
}

// Conflicts decodes the conflict list, skipping malformed entries.
func (d ExtractedData) Conflicts() []Conflict {
	raw, ok := d[KeyConflicts].([]any)
	if !ok {
		return nil
	}
	out := make([]Conflict, 0, len(raw))
	for _, item := range raw {
		var c Conflict
		if err := remarshal(item, &c); err != nil || c.Message == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func toMap(v any) map[string]any {
	out := map[string]any{}
	_ = remarshal(v, &out)
	return out
}

func remarshal(in, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
