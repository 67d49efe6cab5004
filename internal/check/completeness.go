// Package check runs the advisory checks over a raw brief: missing core
// fields and factual contradictions. Neither check ever blocks assembly.
package check

import (
	"strings"

	"scribe.app/engine/internal/model"
	"scribe.app/engine/internal/resolve"
)

type coreField struct {
	name  string
	label string
}

var coreFields = []coreField{
	{"client", "Client"},
	{"deliverables", "Deliverables"},
	{"due_date", "Due Date"},
	{"platforms", "Platforms"},
	{"budget", "Budget"},
	{"description", "Project Description"},
}

// CoreFields lists the field names Completeness looks for.
func CoreFields() []string {
	out := make([]string, len(coreFields))
	for i, f := range coreFields {
		out[i] = f.name
	}
	return out
}

// Completeness flags core fields that are missing, empty or marked TBD.
func Completeness(brief model.Brief) []model.Flag {
	var flags []model.Flag
	for _, f := range coreFields {
		m, ok := resolve.ResolveNested(f.name, brief)
		switch {
		case !ok:
			flags = append(flags, model.Flag{Field: f.name, Label: f.label, Reason: "missing"})
		case isTBD(m.Value):
			flags = append(flags, model.Flag{Field: f.name, Label: f.label, Reason: "marked TBD"})
		case model.IsEmptyValue(m.Value):
			flags = append(flags, model.Flag{Field: f.name, Label: f.label, Reason: "empty"})
		}
	}
	return flags
}

func isTBD(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	return strings.EqualFold(strings.Trim(strings.TrimSpace(s), ".!"), "tbd")
}
