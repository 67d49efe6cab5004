package block_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"scribe.app/engine/internal/block"
)

var _ = Describe("ParseKind", func() {
	DescribeTable("accepts template spellings",
		func(input string, want block.Kind) {
			Expect(block.ParseKind(input)).To(Equal(want))
		},
		Entry("h1", "h1", block.KindHeading1),
		Entry("heading-2", "heading-2", block.KindHeading2),
		Entry("collapsible", "collapsible", block.KindToggle),
		Entry("list item", "list_item", block.KindBulleted),
		Entry("hr", "hr", block.KindDivider),
		Entry("unknown", "synced_block", block.KindOther),
	)
})

var _ = Describe("ToggleDepth", func() {
	It("counts nested toggles only", func() {
		blocks := []block.Block{
			block.Paragraph(block.Text("intro")...),
			block.Toggle("outer", []block.Block{
				block.Bullet(block.Text("a")...),
				block.Toggle("inner", []block.Block{block.Paragraph(block.Text("leaf")...)}),
			}),
		}
		Expect(block.ToggleDepth(blocks)).To(Equal(2))
		Expect(block.ToggleDepth(nil)).To(Equal(0))
	})
})

var _ = Describe("Markdown", func() {
	It("returns a single plain run for text without markup", func() {
		Expect(block.Markdown("Deliver by Friday")).To(Equal([]block.RichText{{Content: "Deliver by Friday"}}))
	})

	It("converts bold passages into bold runs", func() {
		runs := block.Markdown("Need a **30 second** reel")
		Expect(runs).To(Equal([]block.RichText{
			{Content: "Need a "},
			{Content: "30 second", Bold: true},
			{Content: " reel"},
		}))
	})

	It("converts single emphasis into italic runs", func() {
		runs := block.Markdown("tone is *playful*")
		Expect(runs).To(ContainElement(block.RichText{Content: "playful", Italic: true}))
	})

	It("keeps link destinations", func() {
		runs := block.Markdown("see [the deck](https://example.com/deck)")
		Expect(runs).To(ContainElement(block.RichText{Content: "the deck", Link: "https://example.com/deck"}))
	})

	It("keeps leading list markers as literal text", func() {
		Expect(block.StripMarkdown("1. **first** step")).To(Equal("1. first step"))
		Expect(block.StripMarkdown("# **not** a heading")).To(Equal("# not a heading"))
	})

	It("keeps tag-like text as literal text", func() {
		Expect(block.Markdown("**Cast:** <lead actor> and two extras")).To(Equal([]block.RichText{
			{Content: "Cast:", Bold: true},
			{Content: " <lead actor> and two extras"},
		}))
		Expect(block.StripMarkdown("<div>wardrobe</div>\n\n**bold** call")).To(And(
			ContainSubstring("<div>wardrobe</div>"),
			HaveSuffix("bold call"),
		))
	})

	It("returns nil for blank input", func() {
		Expect(block.Markdown("   ")).To(BeNil())
	})
})

var _ = Describe("Label", func() {
	It("prefixes a bold label", func() {
		runs := block.Label("Client", block.Text("Acme"))
		Expect(runs[0]).To(Equal(block.RichText{Content: "Client: ", Bold: true}))
		Expect(runs[1].Content).To(Equal("Acme"))
	})
})
