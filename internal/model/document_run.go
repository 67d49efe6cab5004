package model

import (
	"encoding/json"
	"time"
)

type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// DocumentRun is one brief moving through intake, assembly and persistence.
type DocumentRun struct {
	ID           int64           `json:"id"`
	TemplateType string          `json:"template_type"`
	Complexity   Complexity      `json:"complexity"`
	Status       RunStatus       `json:"status"`
	Brief        Brief           `json:"brief"`
	RecordSchema json.RawMessage `json:"record_schema,omitempty"`
	Blocks       json.RawMessage `json:"blocks,omitempty"`
	Properties   json.RawMessage `json:"properties,omitempty"`
	Extracted    json.RawMessage `json:"extracted,omitempty"`
	Flags        json.RawMessage `json:"flags,omitempty"`
	Conflicts    json.RawMessage `json:"conflicts,omitempty"`
	SectionOrder json.RawMessage `json:"section_order,omitempty"`
	Error        *string         `json:"error,omitempty"`
	ErrorDetail  json.RawMessage `json:"error_detail,omitempty"`
	Attempts     int             `json:"attempts"`
	TraceID      *string         `json:"trace_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// RunOutput is what a finished run persists.
type RunOutput struct {
	Blocks       json.RawMessage
	Properties   json.RawMessage
	Extracted    json.RawMessage
	Flags        json.RawMessage
	Conflicts    json.RawMessage
	SectionOrder json.RawMessage
}
