package block

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var (
	md = goldmark.New()

	// Markers that would turn a line into a block-level construct. Inline text
	// is escaped so goldmark only contributes emphasis and links.
	blockMarkerPattern = regexp.MustCompile(`^(#{1,6}\s|[-+*>]\s|[=_*-]{3,}\s*$)`)
	orderedPattern     = regexp.MustCompile(`^(\d+)([.)]\s)`)
	inlineMarkup       = regexp.MustCompile("[*_\\[`]")
	escapedPunct       = regexp.MustCompile("\\\\([!-/:-@\\[-`{-~])")
)

// Markdown converts inline markdown (bold, italic, links, code) into rich text
// runs. Block-level syntax and tag-like text are kept as literal text.
func Markdown(s string) []RichText {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if !inlineMarkup.MatchString(s) {
		return Text(s)
	}

	src := []byte(escapeBlockMarkers(s))
	doc := md.Parser().Parse(text.NewReader(src))

	var runs []RichText
	bold, italic := 0, 0
	link := ""
	paragraphs := 0

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Paragraph, *ast.TextBlock, *ast.Heading:
			if entering {
				if paragraphs > 0 {
					runs = appendRun(runs, RichText{Content: "\n\n"})
				}
				paragraphs++
			}
		case *ast.Emphasis:
			delta := 1
			if !entering {
				delta = -1
			}
			if node.Level >= 2 {
				bold += delta
			} else {
				italic += delta
			}
		case *ast.Link:
			if entering {
				link = string(node.Destination)
			} else {
				link = ""
			}
		case *ast.AutoLink:
			if entering {
				url := string(node.URL(src))
				runs = appendRun(runs, RichText{Content: url, Link: url})
			}
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			if entering {
				content := string(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					content += "\n"
				}
				runs = appendRun(runs, RichText{Content: content, Bold: bold > 0, Italic: italic > 0, Link: link})
			}
		case *ast.RawHTML:
			if entering {
				for i := 0; i < node.Segments.Len(); i++ {
					seg := node.Segments.At(i)
					runs = appendRun(runs, RichText{Content: string(seg.Value(src)), Bold: bold > 0, Italic: italic > 0, Link: link})
				}
			}
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock:
			if entering {
				if paragraphs > 0 {
					runs = appendRun(runs, RichText{Content: "\n\n"})
				}
				paragraphs++
				lines := node.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					runs = appendRun(runs, RichText{Content: string(seg.Value(src))})
				}
				if node.HasClosure() {
					runs = appendRun(runs, RichText{Content: string(node.ClosureLine.Value(src))})
				}
			}
			return ast.WalkSkipChildren, nil
		case *ast.String:
			if entering {
				runs = appendRun(runs, RichText{Content: string(node.Value), Bold: bold > 0, Italic: italic > 0, Link: link})
			}
		}
		return ast.WalkContinue, nil
	})

	if len(runs) == 0 {
		return Text(s)
	}
	for i := range runs {
		runs[i].Content = escapedPunct.ReplaceAllString(runs[i].Content, "$1")
	}
	last := &runs[len(runs)-1]
	last.Content = strings.TrimRight(last.Content, "\n ")
	if last.Content == "" {
		runs = runs[:len(runs)-1]
	}
	return runs
}

// Italic marks every run italic.
func Italic(runs []RichText) []RichText {
	out := make([]RichText, len(runs))
	for i, rt := range runs {
		rt.Italic = true
		out[i] = rt
	}
	return out
}

// Label renders "label: value" with a bold label.
func Label(label string, value []RichText) []RichText {
	runs := []RichText{{Content: label + ": ", Bold: true}}
	return append(runs, value...)
}

// StripMarkdown removes emphasis markers, leaving the text.
func StripMarkdown(s string) string {
	var sb strings.Builder
	for _, rt := range Markdown(s) {
		sb.WriteString(rt.Content)
	}
	return sb.String()
}

func appendRun(runs []RichText, rt RichText) []RichText {
	if rt.Content == "" {
		return runs
	}
	if n := len(runs); n > 0 {
		prev := &runs[n-1]
		if prev.Bold == rt.Bold && prev.Italic == rt.Italic && prev.Link == rt.Link {
			prev.Content += rt.Content
			return runs
		}
	}
	return append(runs, rt)
}

func escapeBlockMarkers(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		line = strings.TrimLeft(line, " \t")
		switch {
		case blockMarkerPattern.MatchString(line):
			line = `\` + line
		case orderedPattern.MatchString(line):
			line = orderedPattern.ReplaceAllString(line, `$1\$2`)
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}
