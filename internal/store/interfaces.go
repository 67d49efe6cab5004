package store

import (
	"context"
	"encoding/json"
	"errors"

	"scribe.app/engine/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// RunStore persists document runs through their lifecycle.
type RunStore interface {
	Create(ctx context.Context, run *model.DocumentRun) error
	GetByID(ctx context.Context, id int64) (*model.DocumentRun, error)
	// MarkRunning moves a queued or failed run to running and bumps its attempt count.
	MarkRunning(ctx context.Context, id int64) error
	Complete(ctx context.Context, id int64, out model.RunOutput) error
	Fail(ctx context.Context, id int64, reason string, detail json.RawMessage) error
}

// LLMEvalStore records reasoning-service calls for quality tracking.
type LLMEvalStore interface {
	Create(ctx context.Context, eval *model.LLMEval) (*model.LLMEval, error)
	ListByRun(ctx context.Context, runID int64) ([]model.LLMEval, error)
}
