package template_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"scribe.app/engine/internal/block"
	"scribe.app/engine/internal/template"
)

var _ = Describe("Parse", func() {
	It("groups blocks under headings and records instructions", func() {
		blocks := []block.Block{
			block.Heading(2, "Project Overview"),
			block.Toggle("Summarize the ask in two sentences", nil),
			block.Paragraph(block.Text("Client: {{client}}")...),
			block.Heading(2, "Deliverables"),
			block.Paragraph(block.Text("List every asset")...),
			block.Toggle("Notes", []block.Block{block.Paragraph(block.Text("[SOP: confirm aspect ratios] and ignore this")...)}),
			block.Toggle("Plain toggle later in section", nil),
		}

		res := template.Parse(blocks)

		Expect(res.TotalSections).To(Equal(2))
		Expect(res.Sections[0].Title).To(Equal("Project Overview"))
		Expect(res.Sections[0].Instructions).To(Equal([]string{"Summarize the ask in two sentences"}))
		Expect(res.Sections[0].Content).To(HaveLen(1))
		Expect(res.Sections[0].Content[0].Variables).To(Equal([]string{"client"}))

		Expect(res.Sections[1].Instructions).To(Equal([]string{"confirm aspect ratios"}))
		Expect(res.Sections[1].Content).To(HaveLen(2))
		Expect(res.Sections[1].Content[1].Kind).To(Equal(block.KindToggle))
		Expect(res.TotalSOPs).To(Equal(2))
		Expect(res.TotalVariables).To(Equal(1))
	})

	It("creates an implicit root section for content before the first heading", func() {
		res := template.Parse([]block.Block{
			block.Paragraph(block.Text("Intro text")...),
			block.Heading(1, "Title"),
		})
		Expect(res.Sections).To(HaveLen(2))
		Expect(res.Sections[0].Level).To(Equal(0))
		Expect(res.Sections[0].Title).To(BeEmpty())
		Expect(res.Sections[0].Content[0].Text).To(Equal("Intro text"))
	})

	It("tags conditional content and sections", func() {
		res := template.Parse([]block.Block{
			block.Heading(2, "Music (optional)"),
			block.Paragraph(block.Text("Licensed track (if applicable)")...),
			block.Paragraph(block.Text("Always shown")...),
			block.Divider(),
		})
		Expect(res.ConditionalSections).To(Equal(1))
		Expect(res.Sections[0].IsConditional).To(BeTrue())
		Expect(res.Sections[0].Content).To(HaveLen(2))
		Expect(res.Sections[0].Content[0].IsConditional).To(BeTrue())
		Expect(res.Sections[0].Content[1].IsConditional).To(BeFalse())
	})

	It("collects heading variables and lists them once", func() {
		res := template.Parse([]block.Block{
			block.Heading(2, "{{client}} Brief"),
			block.Paragraph(block.Text("Due {{ due_date }} for {{client}}")...),
		})
		Expect(res.Sections[0].Variables).To(Equal([]string{"client"}))
		Expect(res.AllVariables()).To(Equal([]string{"client", "due_date"}))
	})
})

var _ = Describe("heading helpers", func() {
	DescribeTable("IsMandatory",
		func(title string, want bool) {
			Expect(template.IsMandatory(title)).To(Equal(want))
		},
		Entry("asterisk", "Deliverables *", true),
		Entry("required note", "Budget (Required)", true),
		Entry("plain", "Budget", false),
	)

	It("cleans headings for matching", func() {
		Expect(template.CleanHeading("📅 Timeline (optional)")).To(Equal("Timeline"))
		Expect(template.CleanHeading("Deliverables *")).To(Equal("Deliverables"))
		Expect(template.DisplayHeading("Budget (required)")).To(Equal("Budget"))
	})

	It("strips instruction markers", func() {
		Expect(template.StripInstructions("[INSTRUCTION: be brief] Hello")).To(Equal("Hello"))
		Expect(template.Instructions("[sop: one] text [SOP: two]")).To(Equal([]string{"one", "two"}))
	})
})
