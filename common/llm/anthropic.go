package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type anthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

func newAnthropicClient(cfg Config) *anthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-5-20250514"
	}

	return &anthropicClient{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokensOr(cfg.MaxTokens, 4096),
	}
}

// Complete sends a single-turn prompt. Anthropic has no JSON mode, so a JSON
// request is expressed as an instruction appended to the system prompt.
func (c *anthropicClient) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	system := req.SystemPrompt
	if req.JSONObject {
		system = strings.TrimSpace(system + "\n\nRespond with a single JSON object and nothing else.")
	}

	text, usage, err := c.send(ctx, system, req.UserPrompt, maxTokensOr(req.MaxTokens, c.maxTokens), req.Temperature)
	if err != nil {
		return nil, err
	}

	return &Completion{
		Text:             text,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
	}, nil
}

// Chat embeds the JSON schema in the system prompt and unmarshals the reply.
func (c *anthropicClient) Chat(ctx context.Context, req Request, result any) (*Response, error) {
	schemaJSON, err := json.Marshal(req.Schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	system := fmt.Sprintf("%s\n\nRespond with a single JSON object matching this JSON schema (%s):\n%s",
		req.SystemPrompt, req.SchemaName, schemaJSON)

	text, usage, err := c.send(ctx, system, req.UserPrompt, maxTokensOr(req.MaxTokens, c.maxTokens), req.Temperature)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(stripFences(text)), result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return usage, nil
}

func (c *anthropicClient) Model() string {
	return c.model
}

func (c *anthropicClient) send(ctx context.Context, system, user string, maxTokens int, temperature *float64) (string, *Response, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if temperature != nil {
		params.Temperature = anthropic.Float(*temperature)
	}

	start := time.Now()
	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", nil, fmt.Errorf("anthropic messages: %w", err)
	}

	slog.DebugContext(ctx, "llm completion finished",
		"model", c.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"stop_reason", resp.StopReason)

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", nil, ErrEmptyResponse
	}

	return sb.String(), &Response{
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
	}, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
