package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"scribe.app/engine/core/db"
	"scribe.app/engine/internal/model"
)

type runStore struct {
	conn db.DBTX
}

func newRunStore(conn db.DBTX) RunStore {
	return &runStore{conn: conn}
}

const runColumns = `id, template_type, complexity, status, brief, record_schema, blocks, properties,
	extracted, flags, conflicts, section_order, error, error_detail, attempts, trace_id,
	created_at, updated_at, completed_at`

func (s *runStore) Create(ctx context.Context, run *model.DocumentRun) error {
	brief, err := json.Marshal(run.Brief)
	if err != nil {
		return fmt.Errorf("marshal brief: %w", err)
	}
	if run.Status == "" {
		run.Status = model.RunStatusQueued
	}

	row := s.conn.QueryRow(ctx, `
		INSERT INTO document_runs (id, template_type, complexity, status, brief, record_schema, trace_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		run.ID, run.TemplateType, string(run.Complexity), string(run.Status), brief,
		nullJSON(run.RecordSchema), run.TraceID,
	)
	return row.Scan(&run.CreatedAt, &run.UpdatedAt)
}

func (s *runStore) GetByID(ctx context.Context, id int64) (*model.DocumentRun, error) {
	row := s.conn.QueryRow(ctx, `SELECT `+runColumns+` FROM document_runs WHERE id = $1`, id)

	var (
		run                                   model.DocumentRun
		complexity, status                    string
		brief, schema, blocks, props, extract []byte
		flags, conflicts, order, detail       []byte
		completedAt                           *time.Time
	)
	err := row.Scan(
		&run.ID, &run.TemplateType, &complexity, &status, &brief, &schema, &blocks, &props,
		&extract, &flags, &conflicts, &order, &run.Error, &detail, &run.Attempts, &run.TraceID,
		&run.CreatedAt, &run.UpdatedAt, &completedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(brief, &run.Brief); err != nil {
		return nil, fmt.Errorf("unmarshal brief: %w", err)
	}
	run.Complexity = model.Complexity(complexity)
	run.Status = model.RunStatus(status)
	run.RecordSchema = schema
	run.Blocks = blocks
	run.Properties = props
	run.Extracted = extract
	run.Flags = flags
	run.Conflicts = conflicts
	run.SectionOrder = order
	run.ErrorDetail = detail
	run.CompletedAt = completedAt
	return &run, nil
}

func (s *runStore) MarkRunning(ctx context.Context, id int64) error {
	tag, err := s.conn.Exec(ctx, `
		UPDATE document_runs
		SET status = 'running', attempts = attempts + 1, updated_at = now()
		WHERE id = $1 AND status IN ('queued', 'running', 'failed')`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *runStore) Complete(ctx context.Context, id int64, out model.RunOutput) error {
	tag, err := s.conn.Exec(ctx, `
		UPDATE document_runs
		SET status = 'completed', blocks = $2, properties = $3, extracted = $4, flags = $5,
			conflicts = $6, section_order = $7, error = NULL, error_detail = NULL,
			updated_at = now(), completed_at = now()
		WHERE id = $1`,
		id, nullJSON(out.Blocks), nullJSON(out.Properties), nullJSON(out.Extracted),
		nullJSON(out.Flags), nullJSON(out.Conflicts), nullJSON(out.SectionOrder),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *runStore) Fail(ctx context.Context, id int64, reason string, detail json.RawMessage) error {
	tag, err := s.conn.Exec(ctx, `
		UPDATE document_runs
		SET status = 'failed', error = $2, error_detail = $3, updated_at = now()
		WHERE id = $1`,
		id, reason, nullJSON(detail),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// nullJSON sends empty payloads as SQL NULL rather than invalid JSON.
func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
