// Package assemble walks a template against brief data and produces the
// finished document.
package assemble

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"scribe.app/engine/internal/block"
	"scribe.app/engine/internal/generate"
	"scribe.app/engine/internal/match"
	"scribe.app/engine/internal/priority"
	"scribe.app/engine/internal/resolve"
	"scribe.app/engine/internal/template"
)

// NotProvided fills a mandatory section the brief has nothing for.
const NotProvided = "Not provided in brief."

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.\-]+)\s*\}\}`)

type state int

const (
	stateNoSection state = iota
	stateSkipped
	stateWithData
)

// pending is the section whose content is generated at the next boundary.
type pending struct {
	section template.Section
	heading block.Block
	result  match.Result
	matched bool
}

// assembler holds the working state of one run. It is not shared.
type assembler struct {
	gen      *generate.Generator
	data     map[string]any
	consumed map[string]bool

	state    state
	pending  *pending
	out      []block.Block
	sections []priority.Section
	stats    Stats
}

func newAssembler(gen *generate.Generator, data map[string]any) *assembler {
	return &assembler{gen: gen, data: data, consumed: map[string]bool{}}
}

// walk runs the state machine over the template blocks. parsed must come from
// the same blocks; its non-root sections line up with the headings.
func (a *assembler) walk(ctx context.Context, blocks []block.Block, parsed template.ParseResult) {
	var headed []template.Section
	for _, s := range parsed.Sections {
		if s.Level > 0 {
			headed = append(headed, s)
		}
	}
	next := 0

	for _, b := range blocks {
		switch {
		case b.Kind.IsHeading():
			a.flush(ctx)
			section := template.Section{Level: b.Kind.HeadingLevel(), Title: b.PlainText()}
			if next < len(headed) {
				section = headed[next]
			}
			next++
			a.open(ctx, b, section)
		case b.Kind == block.KindToggle:
			// Instructions were collected by the parser; toggles never reach the output.
		case b.Kind == block.KindDivider:
			a.flush(ctx)
			a.state = stateNoSection
			if n := len(a.out); n > 0 && a.out[n-1].Kind != block.KindDivider {
				a.out = append(a.out, block.Divider())
			}
		default:
			if a.state == stateNoSection {
				if fb, ok := a.fill(b); ok {
					a.out = append(a.out, fb)
				}
			}
		}
	}
	a.flush(ctx)

	for len(a.out) > 0 && a.out[len(a.out)-1].Kind == block.KindDivider {
		a.out = a.out[:len(a.out)-1]
	}
}

func (a *assembler) open(ctx context.Context, b block.Block, section template.Section) {
	a.stats.Sections++
	heading := block.Heading(b.Kind.HeadingLevel(), template.DisplayHeading(section.Title))

	res, ok := match.Match(section.Title, a.data, a.consumed)
	switch {
	case ok:
		a.consume(res)
		a.state = stateWithData
		a.pending = &pending{section: section, heading: heading, result: res, matched: true}
		slog.DebugContext(ctx, "section matched",
			"heading", section.Title,
			"key", res.MatchedKey,
			"stage", res.Stage)
	case section.IsMandatory:
		a.state = stateWithData
		a.pending = &pending{section: section, heading: heading}
	default:
		a.state = stateSkipped
		a.pending = nil
		a.stats.Skipped++
		slog.DebugContext(ctx, "section skipped, no data", "heading", section.Title)
	}
}

func (a *assembler) consume(res match.Result) {
	a.consumed[res.MatchedKey] = true
	for _, k := range res.Consumed {
		a.consumed[k] = true
	}
}

// flush emits the pending section: heading first, then its content, so a
// heading never appears without a body.
func (a *assembler) flush(ctx context.Context) {
	p := a.pending
	a.pending = nil
	if a.state != stateWithData || p == nil {
		return
	}

	title := p.heading.PlainText()
	if !p.matched {
		a.out = append(a.out, p.heading, block.Paragraph(block.Italic(block.Text(NotProvided))...))
		a.stats.Placeholders++
		a.sections = append(a.sections, priority.Section{Heading: title})
		return
	}

	content := a.gen.Generate(ctx, generate.Request{
		Value:        p.result.Data,
		Instructions: p.section.Instructions,
		Heading:      title,
		Italic:       p.result.Rule == match.RuleRawBrief,
		Mechanical:   p.result.Stage == match.StageSmart,
	})
	if len(content) == 0 {
		content = []block.Block{block.Paragraph(block.Italic(block.Text(NotProvided))...)}
	}
	a.out = append(a.out, p.heading)
	a.out = append(a.out, content...)
	a.stats.Matched++
	a.sections = append(a.sections, priority.Section{Heading: title, Key: p.result.MatchedKey})
}

// fill forwards template boilerplate with {{placeholders}} replaced by brief
// values. Placeholders the brief cannot fill stay as written. Blocks left
// empty once instruction markers are removed are dropped.
func (a *assembler) fill(b block.Block) (block.Block, bool) {
	if len(b.RichText) == 0 {
		return b, b.URL != "" || len(b.Children) > 0 || b.Kind == block.KindOther
	}

	runs := make([]block.RichText, 0, len(b.RichText))
	for _, rt := range b.RichText {
		rt.Content = placeholder.ReplaceAllStringFunc(rt.Content, func(tok string) string {
			name := placeholder.FindStringSubmatch(tok)[1]
			if m, ok := resolve.ResolveNested(name, a.data); ok && !match.IsInternal(m.Key) {
				if s := generate.Inline(m.Value); s != "" {
					return s
				}
			}
			return tok
		})
		if strings.Contains(rt.Content, "[") {
			rt.Content = stripMarkers(rt.Content)
		}
		if rt.Content != "" {
			runs = append(runs, rt)
		}
	}
	if len(runs) == 0 {
		return block.Block{}, false
	}
	b.RichText = runs
	return b, true
}

func stripMarkers(s string) string {
	stripped := template.StripInstructions(s)
	if stripped == strings.TrimSpace(s) {
		return s
	}
	return stripped
}

// dedupe drops a paragraph identical to the paragraph right before it.
func dedupe(blocks []block.Block) []block.Block {
	out := make([]block.Block, 0, len(blocks))
	for _, b := range blocks {
		if n := len(out); n > 0 && b.Kind == block.KindParagraph && out[n-1].Kind == block.KindParagraph &&
			strings.TrimSpace(b.PlainText()) == strings.TrimSpace(out[n-1].PlainText()) {
			continue
		}
		out = append(out, b)
	}
	return out
}
