package properties

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"scribe.app/engine/common/llm"
	"scribe.app/engine/internal/evals"
	"scribe.app/engine/internal/match"
	"scribe.app/engine/internal/model"
)

const (
	DefaultMaxCorrections = 1
	// MaxCorrectionsCap bounds the correction loop whatever the configuration says.
	MaxCorrectionsCap = 2
)

// Reasoner is the slice of llm.Client the mapper needs.
type Reasoner interface {
	Chat(ctx context.Context, req llm.Request, result any) (*llm.Response, error)
	Model() string
}

// TerminalError is returned when the values still fail validation after the
// last correction. It carries what was attempted for diagnostics.
type TerminalError struct {
	Attempted   map[string]any
	Corrections int
	Cause       error
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("property mapping failed after %d correction(s): %v", e.Corrections, e.Cause)
}

func (e *TerminalError) Unwrap() error {
	return e.Cause
}

type MappingResponse struct {
	Properties []PropertyValue `json:"properties" jsonschema_description:"One entry per schema field the data supports"`
}

type PropertyValue struct {
	Name  string `json:"name" jsonschema_description:"Exact field name from the schema"`
	Value string `json:"value" jsonschema_description:"The value as text. Lists comma-separated, dates YYYY-MM-DD, checkboxes true or false, numbers digits only"`
}

var mappingSchema = llm.GenerateSchema[MappingResponse]()

// Mapper turns extracted data into record property values. Values the data
// holds directly are pre-filled locally; the reasoning service fills the rest
// and gets a bounded number of chances to correct invalid output.
type Mapper struct {
	reasoner       Reasoner
	evals          *evals.Recorder
	maxCorrections int
	now            func() time.Time
}

// NewMapper clamps maxCorrections to [0, MaxCorrectionsCap]. A nil reasoner
// limits the mapper to local pre-fill.
func NewMapper(reasoner Reasoner, recorder *evals.Recorder, maxCorrections int) *Mapper {
	maxCorrections = max(0, min(maxCorrections, MaxCorrectionsCap))
	return &Mapper{reasoner: reasoner, evals: recorder, maxCorrections: maxCorrections, now: time.Now}
}

func (m *Mapper) WithClock(now func() time.Time) *Mapper {
	m.now = now
	return m
}

// Map returns validated property values for schema. It returns a
// *TerminalError when validation still fails after the correction budget, and
// a wrapped provider error when the call failed in a way worth retrying.
// Other provider failures degrade to the locally pre-filled values.
func (m *Mapper) Map(ctx context.Context, schema Schema, data map[string]any) (map[string]any, error) {
	if len(schema) == 0 {
		return map[string]any{}, nil
	}

	local := Prefill(schema, data, m.now())
	if m.reasoner == nil {
		return local, nil
	}

	prompt, err := buildMappingPrompt(schema, data, local)
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		values, err := m.call(ctx, prompt)
		if err != nil {
			if llm.IsRetryable(ctx, err) {
				return nil, fmt.Errorf("property mapping: %w", err)
			}
			slog.WarnContext(ctx, "property mapping call failed, using local values", "error", err)
			return local, nil
		}

		props := merge(local, m.coerce(schema, values))
		err = Validate(schema, props)
		if err == nil {
			return props, nil
		}
		if !errors.Is(err, ErrValidation) {
			return nil, err
		}
		if attempt >= m.maxCorrections {
			return nil, &TerminalError{Attempted: props, Corrections: attempt, Cause: err}
		}

		slog.WarnContext(ctx, "property values invalid, requesting correction",
			"attempt", attempt+1,
			"error", err)
		prompt = buildCorrectionPrompt(prompt, values, err)
	}
}

func (m *Mapper) call(ctx context.Context, prompt string) ([]PropertyValue, error) {
	var resp MappingResponse
	start := time.Now()
	usage, err := m.reasoner.Chat(ctx, llm.Request{
		SystemPrompt: mappingSystemPrompt,
		UserPrompt:   prompt,
		SchemaName:   "property_mapping",
		Schema:       mappingSchema,
		Temperature:  llm.Temp(0),
	}, &resp)

	entry := evals.Entry{
		Stage:    evals.StageProperties,
		Input:    prompt,
		Model:    m.reasoner.Model(),
		Latency:  time.Since(start),
		Err:      err,
		Fallback: err != nil,
	}
	if err == nil {
		if raw, mErr := json.Marshal(resp); mErr == nil {
			entry.Output = string(raw)
		}
	}
	if usage != nil {
		entry.PromptTokens = usage.PromptTokens
		entry.CompletionTokens = usage.CompletionTokens
	}
	m.evals.Record(ctx, entry)

	if err != nil {
		return nil, err
	}
	return resp.Properties, nil
}

// coerce converts the model's text values. Names outside the schema are kept
// so validation reports them.
func (m *Mapper) coerce(schema Schema, values []PropertyValue) map[string]any {
	out := make(map[string]any, len(values))
	now := m.now()
	for _, pv := range values {
		if strings.TrimSpace(pv.Value) == "" {
			continue
		}
		f, ok := schema.Field(pv.Name)
		if !ok {
			out[pv.Name] = pv.Value
			continue
		}
		out[pv.Name] = Coerce(f, pv.Value, now)
	}
	return out
}

func merge(base, over map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

func buildMappingPrompt(schema Schema, data, local map[string]any) (string, error) {
	fields, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal schema: %w", err)
	}

	payload := match.Visible(data, nil)
	if u, ok := model.ExtractedData(data).Urgency(); ok {
		payload["urgency_level"] = string(u.Level)
	}
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal data: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("## Record fields\n```json\n")
	sb.Write(fields)
	sb.WriteString("\n```\n\n## Brief data\n```json\n")
	sb.Write(raw)
	sb.WriteString("\n```\n")
	if len(local) > 0 {
		known, err := json.Marshal(local)
		if err != nil {
			return "", fmt.Errorf("marshal known values: %w", err)
		}
		sb.WriteString("\n## Already known\n")
		sb.Write(known)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func buildCorrectionPrompt(previous string, values []PropertyValue, cause error) string {
	raw, _ := json.Marshal(MappingResponse{Properties: values})

	var sb strings.Builder
	sb.WriteString(previous)
	sb.WriteString("\n## Your previous answer\n")
	sb.Write(raw)
	sb.WriteString("\n\n## Problems\n")
	var ve *ValidationError
	if errors.As(cause, &ve) {
		for _, p := range ve.Problems {
			fmt.Fprintf(&sb, "- %s: %s\n", p.Field, p.Reason)
		}
	} else {
		fmt.Fprintf(&sb, "- %v\n", cause)
	}
	sb.WriteString("\nReturn the full corrected list. Omit a field rather than guess.\n")
	return sb.String()
}

const mappingSystemPrompt = `You fill the properties of a production record from brief data.

- Use only facts present in the data. Omit fields the data does not support.
- Use the exact field names given.
- select and multi_select values must be taken from the field's options, spelled exactly.
- Dates are YYYY-MM-DD. Numbers are digits only. Checkboxes are true or false.
- "Already known" values are correct; repeat them unchanged.`
