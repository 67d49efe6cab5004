package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"scribe.app/engine/common/id"
	"scribe.app/engine/internal/model"
	"scribe.app/engine/internal/properties"
	"scribe.app/engine/internal/queue"
	"scribe.app/engine/internal/store"
	"scribe.app/engine/internal/template"
)

var (
	ErrInvalidBrief = errors.New("invalid brief")
	ErrRunNotFound  = errors.New("run not found")
)

type SubmitParams struct {
	Brief        model.Brief
	TemplateType string
	Complexity   string
	Schema       json.RawMessage
	TraceID      *string
}

// RunView is a run plus the evals recorded for it.
type RunView struct {
	Run   *model.DocumentRun
	Evals []model.LLMEval
}

type BriefService interface {
	// Submit stores the brief as a queued run and hands it to the workers.
	Submit(ctx context.Context, params SubmitParams) (*model.DocumentRun, error)
	Get(ctx context.Context, runID int64, withEvals bool) (*RunView, error)
}

type briefService struct {
	runs   store.RunStore
	evals  store.LLMEvalStore
	queue  queue.Producer
	logger *slog.Logger
}

func NewBriefService(runs store.RunStore, evals store.LLMEvalStore, producer queue.Producer, logger *slog.Logger) BriefService {
	if logger == nil {
		logger = slog.Default()
	}
	return &briefService{
		runs:   runs,
		evals:  evals,
		queue:  producer,
		logger: logger,
	}
}

func (s *briefService) Submit(ctx context.Context, params SubmitParams) (*model.DocumentRun, error) {
	if len(params.Brief) == 0 {
		return nil, fmt.Errorf("%w: brief is empty", ErrInvalidBrief)
	}
	if (template.Identity{Type: params.TemplateType}).Slug() == "" {
		return nil, fmt.Errorf("%w: template_type is required", ErrInvalidBrief)
	}
	if _, err := properties.ParseSchema(params.Schema); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBrief, err)
	}

	run := &model.DocumentRun{
		ID:           id.New(),
		TemplateType: params.TemplateType,
		Complexity:   model.ParseComplexity(params.Complexity),
		Status:       model.RunStatusQueued,
		Brief:        params.Brief,
		RecordSchema: params.Schema,
		TraceID:      params.TraceID,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}

	if err := s.queue.Enqueue(ctx, queue.BriefMessage{
		RunID:   run.ID,
		TraceID: params.TraceID,
		Attempt: 1,
	}); err != nil {
		detail, _ := json.Marshal(map[string]string{"error": err.Error()})
		if failErr := s.runs.Fail(ctx, run.ID, "enqueue failed", detail); failErr != nil {
			s.logger.ErrorContext(ctx, "failed to mark unqueued run", "run_id", run.ID, "error", failErr)
		}
		return nil, fmt.Errorf("enqueueing brief: %w", err)
	}

	s.logger.InfoContext(ctx, "brief accepted", "run_id", run.ID, "template_type", run.TemplateType, "complexity", run.Complexity)
	return run, nil
}

func (s *briefService) Get(ctx context.Context, runID int64, withEvals bool) (*RunView, error) {
	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("fetching run: %w", err)
	}

	view := &RunView{Run: run}
	if withEvals && s.evals != nil {
		evals, err := s.evals.ListByRun(ctx, runID)
		if err != nil {
			return nil, fmt.Errorf("listing evals: %w", err)
		}
		view.Evals = evals
	}
	return view, nil
}
