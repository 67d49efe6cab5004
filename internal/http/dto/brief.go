package dto

import (
	"encoding/json"
	"time"

	"scribe.app/engine/internal/model"
)

type SubmitBriefRequest struct {
	Brief        map[string]any  `json:"brief" binding:"required"`
	TemplateType string          `json:"template_type" binding:"required"`
	Complexity   string          `json:"complexity,omitempty"`
	Schema       json.RawMessage `json:"schema,omitempty"`
}

type SubmitBriefResponse struct {
	RunID  int64  `json:"run_id"`
	Status string `json:"status"`
}

type RunResponse struct {
	ID           int64           `json:"id"`
	Status       string          `json:"status"`
	TemplateType string          `json:"template_type"`
	Complexity   string          `json:"complexity"`
	Blocks       json.RawMessage `json:"blocks,omitempty"`
	Properties   json.RawMessage `json:"properties,omitempty"`
	Flags        json.RawMessage `json:"flags,omitempty"`
	Conflicts    json.RawMessage `json:"conflicts,omitempty"`
	SectionOrder json.RawMessage `json:"section_order,omitempty"`
	Error        *string         `json:"error,omitempty"`
	ErrorDetail  json.RawMessage `json:"error_detail,omitempty"`
	Attempts     int             `json:"attempts"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	Evals        []EvalResponse  `json:"evals,omitempty"`
}

type EvalResponse struct {
	Stage     string  `json:"stage"`
	Model     string  `json:"model"`
	Fallback  bool    `json:"fallback"`
	Error     *string `json:"error,omitempty"`
	LatencyMs *int    `json:"latency_ms,omitempty"`
}

func NewRunResponse(run *model.DocumentRun, evals []model.LLMEval) RunResponse {
	resp := RunResponse{
		ID:           run.ID,
		Status:       string(run.Status),
		TemplateType: run.TemplateType,
		Complexity:   string(run.Complexity),
		Blocks:       run.Blocks,
		Properties:   run.Properties,
		Flags:        run.Flags,
		Conflicts:    run.Conflicts,
		SectionOrder: run.SectionOrder,
		Error:        run.Error,
		ErrorDetail:  run.ErrorDetail,
		Attempts:     run.Attempts,
		CreatedAt:    run.CreatedAt,
		CompletedAt:  run.CompletedAt,
	}
	for _, e := range evals {
		resp.Evals = append(resp.Evals, EvalResponse{
			Stage:     e.Stage,
			Model:     e.Model,
			Fallback:  e.Fallback,
			Error:     e.Error,
			LatencyMs: e.LatencyMs,
		})
	}
	return resp
}
