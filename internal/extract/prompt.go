package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"scribe.app/engine/internal/model"
)

const promptVersion = "v3"

func buildUserPrompt(brief model.Brief, complexity model.Complexity) (string, error) {
	raw, err := json.MarshalIndent(brief, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal brief: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Complexity\n%s\n\n", complexity)
	sb.WriteString(complexityGuidance[complexity])
	sb.WriteString("\n\n## Brief\n```json\n")
	sb.Write(raw)
	sb.WriteString("\n```\n")
	return sb.String(), nil
}

var complexityGuidance = map[model.Complexity]string{
	model.ComplexitySimple:   "Keep the output flat. Only clean and rename fields; do not invent sub-structure.",
	model.ComplexityStandard: "Group related details into small objects where the brief clearly implies them.",
	model.ComplexityComplex:  "Break long free text into named sub-sections and list every deliverable separately.",
}

const extractionSystemPrompt = `You turn messy creative-production briefs into one clean JSON object.

## Output

Return exactly one JSON object. No prose, no markdown fences.

- Keys are snake_case. Keep every piece of information from the brief.
- Rename obvious synonyms to canonical keys: client, due_date, platforms, deliverables,
  budget, description, references, notes, duration, audience, objective.
- Synthesize fields the brief implies but does not state (for example a platform named
  only inside the description). Mark implied values as {"value": ..., "confidence": 0.0-1.0}.
- Put every URL you find into "references" as an array of strings.
- If the brief has a pre-formatted text blob of "Header: text" lines, return it unchanged
  under "brief_details".
- Dates stay exactly as written. Do not compute or reformat them.

## Do NOT

- Do not score urgency or describe timelines as tight, rushed or relaxed.
- Do not recommend anything or judge the brief.
- Do not output null or empty fields.`
