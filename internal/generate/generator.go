// Package generate renders a matched value as document blocks.
package generate

import (
	"context"
	"log/slog"
	"strings"

	"scribe.app/engine/internal/block"
	"scribe.app/engine/internal/model"
	"scribe.app/engine/internal/resolve"
)

const (
	DefaultMaxCharsPerBlock = 1800

	// organizeMinFields is the smallest object worth a layout call.
	organizeMinFields = 3
)

// Organizer lays out an object as blocks through the reasoning service.
type Organizer interface {
	Organize(ctx context.Context, heading string, instructions []string, value map[string]any) ([]block.Block, error)
}

type Options struct {
	MaxCharsPerBlock int
	// Organizer is optional; without it objects are always expanded mechanically.
	Organizer Organizer
}

type Generator struct {
	maxChars  int
	organizer Organizer
}

func New(opts Options) *Generator {
	if opts.MaxCharsPerBlock <= 0 {
		opts.MaxCharsPerBlock = DefaultMaxCharsPerBlock
	}
	return &Generator{maxChars: opts.MaxCharsPerBlock, organizer: opts.Organizer}
}

// MaxChars is the longest text a single block may hold.
func (g *Generator) MaxChars() int {
	return g.maxChars
}

// Request is one value to render.
type Request struct {
	Value        any
	Instructions []string
	Heading      string
	Depth        int
	// Italic renders text runs in italics (raw brief text).
	Italic bool
	// Mechanical skips the organizer.
	Mechanical bool
}

// Generate dispatches on the value's shape. It never returns an empty list
// for a non-empty value.
func (g *Generator) Generate(ctx context.Context, req Request) []block.Block {
	if model.IsEmptyValue(req.Value) {
		return nil
	}

	blocks := g.generate(ctx, req)
	if len(blocks) == 0 {
		blocks = []block.Block{block.Paragraph(block.Text(Inline(req.Value))...)}
	}
	return blocks
}

func (g *Generator) generate(ctx context.Context, req Request) []block.Block {
	switch v := req.Value.(type) {
	case string:
		return g.stringBlocks(v, req.Italic)
	case []any:
		return g.arrayBlocks(v)
	case map[string]any:
		if text, ok := confidenceText(v); ok {
			return []block.Block{block.Paragraph(block.Markdown(text)...)}
		}
		if req.Depth == 0 && !req.Mechanical && len(v) >= organizeMinFields && g.organizer != nil {
			blocks, err := g.organizer.Organize(ctx, req.Heading, req.Instructions, v)
			if err == nil && len(blocks) > 0 {
				return blocks
			}
			slog.WarnContext(ctx, "organizer failed, expanding mechanically", "heading", req.Heading, "error", err)
		}
		return g.objectBlocks(v, req.Depth)
	default:
		return []block.Block{block.Paragraph(block.Text(model.Scalar(v))...)}
	}
}

func (g *Generator) arrayBlocks(items []any) []block.Block {
	var blocks []block.Block
	for _, item := range items {
		if model.IsEmptyValue(item) {
			continue
		}
		switch v := item.(type) {
		case string:
			if isURL(v) {
				blocks = append(blocks, URLBlock(strings.TrimSpace(v)))
				continue
			}
			blocks = append(blocks, block.Bullet(block.Markdown(v)...))
		case map[string]any:
			if text, ok := confidenceText(v); ok {
				blocks = append(blocks, block.Bullet(block.Markdown(text)...))
				continue
			}
			blocks = append(blocks, block.Bullet(block.Text(pipeLine(v))...))
		default:
			blocks = append(blocks, block.Bullet(block.Text(Inline(v))...))
		}
	}
	return blocks
}

// objectBlocks expands fields in key order. Nested objects become toggles
// until block.MaxToggleDepth, then flatten to one line.
func (g *Generator) objectBlocks(obj map[string]any, depth int) []block.Block {
	var blocks []block.Block
	for _, k := range model.SortedKeys(obj) {
		v := obj[k]
		if model.IsEmptyValue(v) {
			continue
		}
		label := resolve.Humanize(k)

		switch t := v.(type) {
		case []any:
			blocks = append(blocks, block.Paragraph(block.RichText{Content: label + ":", Bold: true}))
			blocks = append(blocks, g.arrayBlocks(t)...)
		case map[string]any:
			if text, ok := confidenceText(t); ok {
				blocks = append(blocks, block.Paragraph(block.Label(label, block.Markdown(text))...))
				continue
			}
			if depth >= block.MaxToggleDepth {
				blocks = append(blocks, block.Paragraph(block.Label(label, block.Text(Inline(t)))...))
				continue
			}
			children := g.objectBlocks(t, depth+1)
			if len(children) == 0 {
				continue
			}
			blocks = append(blocks, block.Toggle(label, children))
		case string:
			if strings.Contains(t, "\n") {
				blocks = append(blocks, block.Paragraph(block.RichText{Content: label + ":", Bold: true}))
				blocks = append(blocks, g.stringBlocks(t, false)...)
				continue
			}
			blocks = append(blocks, block.Paragraph(block.Label(label, block.Markdown(t))...))
		default:
			blocks = append(blocks, block.Paragraph(block.Label(label, block.Text(model.Scalar(t)))...))
		}
	}
	return blocks
}

// Inline renders any value on one line: objects as "Key: value; ...",
// lists comma-separated.
func Inline(v any) string {
	switch t := v.(type) {
	case map[string]any:
		if text, ok := confidenceText(t); ok {
			return text
		}
		parts := make([]string, 0, len(t))
		for _, k := range model.SortedKeys(t) {
			if model.IsEmptyValue(t[k]) {
				continue
			}
			parts = append(parts, resolve.Humanize(k)+": "+Inline(t[k]))
		}
		return strings.Join(parts, "; ")
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := Inline(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case string:
		return strings.Join(strings.Fields(t), " ")
	default:
		return model.Scalar(t)
	}
}

// pipeLine renders an object list element as "key: value | key: value".
func pipeLine(obj map[string]any) string {
	parts := make([]string, 0, len(obj))
	for _, k := range model.SortedKeys(obj) {
		if model.IsEmptyValue(obj[k]) {
			continue
		}
		parts = append(parts, k+": "+Inline(obj[k]))
	}
	return strings.Join(parts, " | ")
}

// confidenceText renders {"value": v, "confidence": c} as "v (confidence: c)".
func confidenceText(obj map[string]any) (string, bool) {
	v, hasValue := obj["value"]
	c, hasConfidence := obj["confidence"]
	if !hasValue || !hasConfidence || len(obj) > 3 {
		return "", false
	}
	if len(obj) == 3 {
		if _, ok := obj["source"]; !ok {
			if _, ok := obj["reason"]; !ok {
				return "", false
			}
		}
	}
	return Inline(v) + " (confidence: " + model.Scalar(c) + ")", true
}
