package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"scribe.app/engine/common/llm"
	"scribe.app/engine/internal/block"
	"scribe.app/engine/internal/evals"
)

var ErrInvalidLayout = errors.New("invalid layout")

// Reasoner is the slice of llm.Client the organizer needs.
type Reasoner interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.Completion, error)
	Model() string
}

// Descriptor is one block of a layout returned by the reasoning service.
type Descriptor struct {
	Type    string   `json:"type"`
	Content string   `json:"content"`
	Items   []string `json:"items"`
}

// LLMOrganizer asks the reasoning service to lay out an object. Any failure
// is returned to the generator, which expands mechanically instead.
type LLMOrganizer struct {
	reasoner Reasoner
	evals    *evals.Recorder
	timeout  time.Duration
}

func NewLLMOrganizer(reasoner Reasoner, recorder *evals.Recorder, timeout time.Duration) *LLMOrganizer {
	return &LLMOrganizer{reasoner: reasoner, evals: recorder, timeout: timeout}
}

func (o *LLMOrganizer) Organize(ctx context.Context, heading string, instructions []string, value map[string]any) ([]block.Block, error) {
	raw, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Section heading\n%s\n\n", heading)
	if len(instructions) > 0 {
		sb.WriteString("## Section instructions\n")
		for _, in := range instructions {
			fmt.Fprintf(&sb, "- %s\n", in)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("## Data\n```json\n")
	sb.Write(raw)
	sb.WriteString("\n```\n")
	prompt := sb.String()

	callCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := o.reasoner.Complete(callCtx, llm.CompletionRequest{
		SystemPrompt: organizerSystemPrompt,
		UserPrompt:   prompt,
		JSONObject:   true,
		Temperature:  llm.Temp(0.2),
	})

	entry := evals.Entry{
		Stage:   evals.StageOrganization,
		Input:   prompt,
		Model:   o.reasoner.Model(),
		Latency: time.Since(start),
	}
	if resp != nil {
		entry.Output = resp.Text
		entry.PromptTokens = resp.PromptTokens
		entry.CompletionTokens = resp.CompletionTokens
	}

	var blocks []block.Block
	if err == nil {
		blocks, err = ParseLayout(resp.Text)
	}
	entry.Err = err
	entry.Fallback = err != nil
	o.evals.Record(ctx, entry)

	if err != nil {
		return nil, err
	}
	return blocks, nil
}

// ParseLayout accepts a JSON array of descriptors, or an object holding one
// under "blocks", and converts it. Unknown types, empty content and
// headings with nothing after them reject the whole layout.
func ParseLayout(text string) ([]block.Block, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")

	var descriptors []Descriptor
	if err := json.Unmarshal([]byte(text), &descriptors); err != nil {
		var wrapped struct {
			Blocks []Descriptor `json:"blocks"`
		}
		if err := json.Unmarshal([]byte(text), &wrapped); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
		}
		descriptors = wrapped.Blocks
	}
	if len(descriptors) == 0 {
		return nil, fmt.Errorf("%w: no blocks", ErrInvalidLayout)
	}

	var blocks []block.Block
	for i, d := range descriptors {
		content := strings.TrimSpace(d.Content)
		kind := strings.ToLower(strings.TrimSpace(d.Type))
		switch kind {
		case "heading":
			if content == "" {
				return nil, fmt.Errorf("%w: block %d: empty heading", ErrInvalidLayout, i)
			}
			if i == len(descriptors)-1 || isStructural(descriptors[i+1].Type) {
				return nil, fmt.Errorf("%w: block %d: heading without content", ErrInvalidLayout, i)
			}
			blocks = append(blocks, block.Heading(3, content))
		case "paragraph":
			if content == "" {
				return nil, fmt.Errorf("%w: block %d: empty paragraph", ErrInvalidLayout, i)
			}
			blocks = append(blocks, block.Paragraph(block.Markdown(content)...))
		case "bulleted_list", "numbered_list":
			items := nonEmpty(d.Items)
			if len(items) == 0 {
				return nil, fmt.Errorf("%w: block %d: empty list", ErrInvalidLayout, i)
			}
			if content != "" {
				blocks = append(blocks, block.Paragraph(block.RichText{Content: content, Bold: true}))
			}
			for _, item := range items {
				if kind == "numbered_list" {
					blocks = append(blocks, block.Numbered(block.Markdown(item)...))
				} else {
					blocks = append(blocks, block.Bullet(block.Markdown(item)...))
				}
			}
		case "divider":
			blocks = append(blocks, block.Divider())
		default:
			return nil, fmt.Errorf("%w: block %d: unknown type %q", ErrInvalidLayout, i, d.Type)
		}
	}
	return blocks, nil
}

func isStructural(t string) bool {
	t = strings.ToLower(strings.TrimSpace(t))
	return t == "heading" || t == "divider"
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

const organizerSystemPrompt = `You lay out one section of a production document from structured data.

Return one JSON object: {"blocks": [ ... ]}. Each block is
{"type": "heading" | "paragraph" | "bulleted_list" | "numbered_list" | "divider",
 "content": "text", "items": ["list item", ...]}.

- Use every fact in the data exactly once. Do not add facts.
- "heading" is a short sub-heading and must be followed by content.
- Lists put their entries in "items"; "content" is an optional lead-in label.
- Inline **bold** and *italic* markdown is allowed in text.
- Follow the section instructions when given.
- No prose outside the JSON object.`
