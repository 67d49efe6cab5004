package store

import (
	"context"

	"scribe.app/engine/core/db"
	"scribe.app/engine/internal/model"
)

type llmEvalStore struct {
	conn db.DBTX
}

func newLLMEvalStore(conn db.DBTX) LLMEvalStore {
	return &llmEvalStore{conn: conn}
}

func (s *llmEvalStore) Create(ctx context.Context, eval *model.LLMEval) (*model.LLMEval, error) {
	row := s.conn.QueryRow(ctx, `
		INSERT INTO llm_evals (id, run_id, stage, input_text, output_text, model, fallback, error,
			latency_ms, prompt_tokens, completion_tokens)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at`,
		eval.ID, eval.RunID, eval.Stage, eval.InputText, eval.OutputText, eval.Model, eval.Fallback,
		eval.Error, eval.LatencyMs, eval.PromptTokens, eval.CompletionTokens,
	)
	if err := row.Scan(&eval.CreatedAt); err != nil {
		return nil, err
	}
	return eval, nil
}

func (s *llmEvalStore) ListByRun(ctx context.Context, runID int64) ([]model.LLMEval, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, run_id, stage, input_text, output_text, model, fallback, error,
			latency_ms, prompt_tokens, completion_tokens, created_at
		FROM llm_evals WHERE run_id = $1 ORDER BY created_at, id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	evals := []model.LLMEval{}
	for rows.Next() {
		var e model.LLMEval
		if err := rows.Scan(&e.ID, &e.RunID, &e.Stage, &e.InputText, &e.OutputText, &e.Model, &e.Fallback,
			&e.Error, &e.LatencyMs, &e.PromptTokens, &e.CompletionTokens, &e.CreatedAt); err != nil {
			return nil, err
		}
		evals = append(evals, e)
	}
	return evals, rows.Err()
}
