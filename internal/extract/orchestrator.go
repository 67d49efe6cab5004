// Package extract turns a raw brief into ExtractedData through the reasoning
// service, falling back to a minimal object whenever the service fails.
package extract

import (
	"context"
	"log/slog"
	"time"

	"scribe.app/engine/common/llm"
	"scribe.app/engine/common/logger"
	"scribe.app/engine/internal/evals"
	"scribe.app/engine/internal/model"
)

// Reasoner is the slice of llm.Client extraction needs.
type Reasoner interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.Completion, error)
	Model() string
}

// Outcome describes how extraction went. Err is informational: Extract
// always returns usable data.
type Outcome struct {
	Fallback bool
	Err      error
	Latency  time.Duration
}

type Orchestrator struct {
	reasoner Reasoner
	evals    *evals.Recorder
	now      func() time.Time
}

// NewOrchestrator builds an orchestrator. A nil reasoner means every brief
// takes the fallback path.
func NewOrchestrator(reasoner Reasoner, recorder *evals.Recorder) *Orchestrator {
	return &Orchestrator{reasoner: reasoner, evals: recorder, now: time.Now}
}

// WithClock overrides the clock used for urgency scoring.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

func (o *Orchestrator) Extract(ctx context.Context, brief model.Brief, complexity model.Complexity) (model.ExtractedData, Outcome) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "scribe.extract.orchestrator",
		Stage:     logger.Ptr(evals.StageExtraction),
	})
	sc := logger.StartSpan(ctx, "extract.structured")
	defer sc.End()
	ctx = sc.Context()

	if complexity == "" {
		complexity = model.ComplexityStandard
	}

	obj, outcome := o.callReasoner(ctx, brief, complexity)
	if outcome.Err != nil {
		sc.RecordError(outcome.Err)
		slog.WarnContext(ctx, "structured extraction failed, using fallback", "error", outcome.Err)
		obj = Fallback(brief)
		outcome.Fallback = true
	}

	data := model.ExtractedData(obj)
	// The service is told not to score urgency; anything it sent anyway is replaced.
	delete(data, model.KeyConflicts)
	data[model.KeyOriginalBrief] = brief.Clone()
	data[model.KeyComplexity] = string(complexity)
	data.SetUrgency(ScoreUrgency(brief, o.now()))

	slog.InfoContext(ctx, "structured extraction finished",
		"fallback", outcome.Fallback,
		"fields", len(data),
		"latency_ms", outcome.Latency.Milliseconds())

	return data, outcome
}

func (o *Orchestrator) callReasoner(ctx context.Context, brief model.Brief, complexity model.Complexity) (map[string]any, Outcome) {
	if o.reasoner == nil {
		return nil, Outcome{Err: errNoReasoner}
	}

	prompt, err := buildUserPrompt(brief, complexity)
	if err != nil {
		return nil, Outcome{Err: err}
	}

	start := time.Now()
	resp, err := o.reasoner.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: extractionSystemPrompt,
		UserPrompt:   prompt,
		JSONObject:   true,
		Temperature:  llm.Temp(0.1),
	})
	outcome := Outcome{Latency: time.Since(start)}

	entry := evals.Entry{
		Stage:   evals.StageExtraction,
		Input:   prompt,
		Model:   o.reasoner.Model(),
		Latency: outcome.Latency,
	}
	defer func() {
		entry.Fallback = outcome.Err != nil
		entry.Err = outcome.Err
		o.evals.Record(ctx, entry)
	}()

	if err != nil {
		outcome.Err = err
		return nil, outcome
	}
	entry.Output = resp.Text
	entry.PromptTokens = resp.PromptTokens
	entry.CompletionTokens = resp.CompletionTokens

	obj, err := ParseObject(resp.Text)
	if err != nil {
		outcome.Err = err
		return nil, outcome
	}
	return Clean(obj), outcome
}
