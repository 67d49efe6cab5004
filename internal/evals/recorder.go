// Package evals records every reasoning-service call made while assembling
// a run, so prompt quality can be reviewed after the fact.
package evals

import (
	"context"
	"log/slog"
	"time"

	"scribe.app/engine/common/id"
	"scribe.app/engine/common/logger"
	"scribe.app/engine/internal/model"
	"scribe.app/engine/internal/store"
)

const (
	StageExtraction   = "extraction"
	StageOrganization = "organization"
	StageProperties   = "properties"
)

// Entry describes one call.
type Entry struct {
	Stage            string
	Input            string
	Output           string
	Model            string
	Fallback         bool
	Err              error
	Latency          time.Duration
	PromptTokens     int
	CompletionTokens int
}

// Recorder writes entries to the eval store. A nil Recorder, or one without
// a store, drops entries.
type Recorder struct {
	store store.LLMEvalStore
}

func NewRecorder(s store.LLMEvalStore) *Recorder {
	return &Recorder{store: s}
}

func (r *Recorder) Record(ctx context.Context, e Entry) {
	if r == nil || r.store == nil {
		return
	}

	eval := &model.LLMEval{
		ID:        id.New(),
		RunID:     logger.GetLogFields(ctx).RunID,
		Stage:     e.Stage,
		InputText: e.Input,
		Model:     e.Model,
		Fallback:  e.Fallback,
		LatencyMs: intPtr(int(e.Latency.Milliseconds())),
	}
	if e.Output != "" {
		eval.OutputText = &e.Output
	}
	if e.Err != nil {
		msg := e.Err.Error()
		eval.Error = &msg
	}
	if e.PromptTokens > 0 || e.CompletionTokens > 0 {
		eval.PromptTokens = intPtr(e.PromptTokens)
		eval.CompletionTokens = intPtr(e.CompletionTokens)
	}

	// Eval logging is observability; a failed write never affects the run.
	if _, err := r.store.Create(context.WithoutCancel(ctx), eval); err != nil {
		slog.ErrorContext(ctx, "failed to log eval", "error", err, "stage", e.Stage)
	}
}

func intPtr(i int) *int { return &i }
