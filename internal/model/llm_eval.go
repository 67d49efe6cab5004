package model

import "time"

// LLMEval records one reasoning-service call for quality tracking.
type LLMEval struct {
	ID               int64     `json:"id"`
	RunID            *int64    `json:"run_id,omitempty"`
	Stage            string    `json:"stage"`
	InputText        string    `json:"input_text"`
	OutputText       *string   `json:"output_text,omitempty"`
	Model            string    `json:"model"`
	Fallback         bool      `json:"fallback"`
	Error            *string   `json:"error,omitempty"`
	LatencyMs        *int      `json:"latency_ms,omitempty"`
	PromptTokens     *int      `json:"prompt_tokens,omitempty"`
	CompletionTokens *int      `json:"completion_tokens,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
