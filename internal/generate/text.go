package generate

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"scribe.app/engine/internal/block"
	"scribe.app/engine/internal/template"
)

var (
	bulletLine     = regexp.MustCompile(`^\s*([-*•]|\d{1,3}[.)])\s+(.+)$`)
	paragraphBreak = regexp.MustCompile(`\n\s*\n`)
	sentenceEnd    = regexp.MustCompile(`[.!?]["')\]]*\s+`)
)

func (g *Generator) stringBlocks(s string, italic bool) []block.Block {
	s = strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", "\n"), "\r", "\n")
	s = template.StripInstructions(s)
	if s == "" {
		return nil
	}

	style := func(runs []block.RichText) []block.RichText {
		if italic {
			return block.Italic(runs)
		}
		return runs
	}

	var blocks []block.Block
	if hasBulletLines(s) {
		for _, line := range strings.Split(s, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			m := bulletLine.FindStringSubmatch(line)
			switch {
			case m == nil:
				for _, chunk := range Chunk(line, g.maxChars) {
					blocks = append(blocks, block.Paragraph(style(block.Markdown(chunk))...))
				}
			case m[1] == "-" || m[1] == "*" || m[1] == "•":
				blocks = append(blocks, block.Bullet(style(block.Markdown(m[2]))...))
			default:
				blocks = append(blocks, block.Numbered(style(block.Markdown(m[2]))...))
			}
		}
	} else {
		for _, chunk := range Chunk(s, g.maxChars) {
			blocks = append(blocks, block.Paragraph(style(block.Markdown(chunk))...))
		}
	}

	for _, u := range FindURLs(s) {
		blocks = append(blocks, URLBlock(u))
	}
	return blocks
}

func hasBulletLines(s string) bool {
	for _, line := range strings.Split(s, "\n") {
		if m := bulletLine.FindStringSubmatch(line); m != nil {
			// "**bold** text" is emphasis, not a bullet.
			if m[1] == "*" && strings.HasPrefix(strings.TrimSpace(line), "**") {
				continue
			}
			return true
		}
	}
	return false
}

// Chunk splits text at paragraph boundaries, then sentence boundaries, so no
// chunk exceeds max characters. A single sentence longer than max is cut at
// the last space before the limit.
func Chunk(text string, max int) []string {
	if max <= 0 {
		max = DefaultMaxCharsPerBlock
	}

	var out []string
	for _, para := range paragraphBreak.Split(strings.TrimSpace(text), -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if utf8.RuneCountInString(para) <= max {
			out = append(out, para)
			continue
		}

		var current strings.Builder
		for _, sentence := range sentences(para) {
			if current.Len() > 0 && utf8.RuneCountInString(current.String())+1+utf8.RuneCountInString(sentence) > max {
				out = append(out, current.String())
				current.Reset()
			}
			for utf8.RuneCountInString(sentence) > max {
				head, tail := cut(sentence, max)
				if current.Len() > 0 {
					out = append(out, current.String())
					current.Reset()
				}
				out = append(out, head)
				sentence = tail
			}
			if current.Len() > 0 {
				current.WriteString(" ")
			}
			current.WriteString(sentence)
		}
		if current.Len() > 0 {
			out = append(out, current.String())
		}
	}
	return out
}

func sentences(para string) []string {
	var out []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(para, -1) {
		if s := strings.TrimSpace(para[last:loc[1]]); s != "" {
			out = append(out, s)
		}
		last = loc[1]
	}
	if s := strings.TrimSpace(para[last:]); s != "" {
		out = append(out, s)
	}
	return out
}

func cut(s string, max int) (string, string) {
	runes := []rune(s)
	end := max
	for i := max; i > max/2; i-- {
		if runes[i] == ' ' {
			end = i
			break
		}
	}
	return strings.TrimSpace(string(runes[:end])), strings.TrimSpace(string(runes[end:]))
}
