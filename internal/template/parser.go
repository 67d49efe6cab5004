// Package template turns a flat list of template blocks into sections and
// supplies those blocks from files with a Redis read-through cache.
package template

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"scribe.app/engine/internal/block"
)

var (
	instructionPattern = regexp.MustCompile(`(?is)\[\s*(?:INSTRUCTION|SOP)\s*:\s*(.*?)\]`)
	variablePattern    = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.\-]+)\s*\}\}`)
	conditionalPattern = regexp.MustCompile(`(?i)\((?:if applicable|optional|if needed|if available|when applicable|conditional)\)`)
	requiredPattern    = regexp.MustCompile(`(?i)\(required\)`)
)

// Section is one heading of the template and everything up to the next one.
// The implicit root section has Level 0 and an empty Title.
type Section struct {
	Level         int
	Title         string
	Instructions  []string
	Variables     []string
	Content       []ContentItem
	IsConditional bool
	IsMandatory   bool
}

type ContentItem struct {
	Kind          block.Kind
	Text          string
	Variables     []string
	IsConditional bool
}

type ParseResult struct {
	Sections            []Section
	TotalSections       int
	TotalSOPs           int
	TotalVariables      int
	ConditionalSections int
}

// Parse groups blocks under their headings. A toggle that opens a section, or
// one carrying an [INSTRUCTION: ...] or [SOP: ...] marker, becomes
// instruction text; every other non-empty block becomes content.
func Parse(blocks []block.Block) ParseResult {
	var (
		sections []Section
		current  *Section
	)

	push := func() {
		if current != nil {
			sections = append(sections, *current)
		}
	}

	for _, b := range blocks {
		if b.Kind.IsHeading() {
			push()
			title := b.PlainText()
			current = &Section{
				Level:         b.Kind.HeadingLevel(),
				Title:         title,
				Variables:     Variables(title),
				IsConditional: IsConditional(title),
				IsMandatory:   IsMandatory(title),
			}
			continue
		}

		text := strings.TrimSpace(blockText(b))
		if text == "" {
			continue
		}
		if current == nil {
			current = &Section{}
		}

		if b.Kind == block.KindToggle {
			if markers := Instructions(text); len(markers) > 0 {
				current.Instructions = append(current.Instructions, markers...)
				continue
			}
			if len(current.Content) == 0 && len(current.Instructions) == 0 {
				current.Instructions = append(current.Instructions, text)
				continue
			}
		}

		current.Content = append(current.Content, ContentItem{
			Kind:          b.Kind,
			Text:          text,
			Variables:     Variables(text),
			IsConditional: IsConditional(text),
		})
	}
	push()

	result := ParseResult{Sections: sections, TotalSections: len(sections)}
	vars := map[string]bool{}
	for _, s := range sections {
		result.TotalSOPs += len(s.Instructions)
		if s.IsConditional {
			result.ConditionalSections++
		}
		for _, v := range s.Variables {
			vars[v] = true
		}
		for _, item := range s.Content {
			for _, v := range item.Variables {
				vars[v] = true
			}
		}
	}
	result.TotalVariables = len(vars)
	return result
}

// AllVariables returns every distinct {{variable}} in the template, sorted.
func (r ParseResult) AllVariables() []string {
	seen := map[string]bool{}
	var out []string
	add := func(vs []string) {
		for _, v := range vs {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	for _, s := range r.Sections {
		add(s.Variables)
		for _, item := range s.Content {
			add(item.Variables)
		}
	}
	sort.Strings(out)
	return out
}

// Instructions extracts the text of every bracketed instruction marker in s.
func Instructions(s string) []string {
	var out []string
	for _, m := range instructionPattern.FindAllStringSubmatch(s, -1) {
		if text := strings.TrimSpace(m[1]); text != "" {
			out = append(out, text)
		}
	}
	return out
}

// StripInstructions removes bracketed instruction markers from s.
func StripInstructions(s string) string {
	return strings.TrimSpace(instructionPattern.ReplaceAllString(s, ""))
}

// Variables returns the {{variable}} names in s in order of first appearance.
func Variables(s string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range variablePattern.FindAllStringSubmatch(s, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

func IsConditional(s string) bool {
	return conditionalPattern.MatchString(s)
}

// IsMandatory reports whether a heading is marked required, either with a
// trailing asterisk or a "(required)" note.
func IsMandatory(title string) bool {
	t := strings.TrimSpace(title)
	return strings.HasSuffix(t, "*") || requiredPattern.MatchString(t)
}

// CleanHeading drops markers and emoji decoration so the heading can be
// matched against data keys.
func CleanHeading(title string) string {
	t := conditionalPattern.ReplaceAllString(title, "")
	t = requiredPattern.ReplaceAllString(t, "")
	t = variablePattern.ReplaceAllString(t, "")
	t = strings.TrimRight(strings.TrimSpace(t), "*: ")
	return strings.TrimLeftFunc(t, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// DisplayHeading is the heading as it appears in output: markers removed,
// leading decoration kept.
func DisplayHeading(title string) string {
	t := requiredPattern.ReplaceAllString(title, "")
	t = conditionalPattern.ReplaceAllString(t, "")
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(t), "*"))
}

func blockText(b block.Block) string {
	parts := []string{b.PlainText()}
	for _, child := range b.Children {
		if t := blockText(child); t != "" {
			parts = append(parts, t)
		}
	}
	if b.URL != "" {
		parts = append(parts, b.URL)
	}
	return strings.Join(parts, "\n")
}
