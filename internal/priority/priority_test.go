package priority_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"scribe.app/engine/internal/model"
	"scribe.app/engine/internal/priority"
)

var _ = Describe("Prioritize", func() {
	var sections []priority.Section

	BeforeEach(func() {
		sections = []priority.Section{
			{Heading: "Raw Brief"},
			{Heading: "Creative Direction"},
			{Heading: "Budget"},
			{Heading: "Platforms"},
			{Heading: "Timeline"},
			{Heading: "Key Details"},
		}
	})

	It("reorders without dropping anything", func() {
		out := priority.Prioritize(sections, priority.Signals{})
		Expect(out).To(HaveLen(len(sections)))
		Expect(priority.Headings(out)).To(Equal([]string{
			"Key Details", "Timeline", "Budget", "Platforms", "Creative Direction", "Raw Brief",
		}))
	})

	It("does not modify the input", func() {
		priority.Prioritize(sections, priority.Signals{})
		Expect(sections[0].Heading).To(Equal("Raw Brief"))
		Expect(sections[0].Score).To(BeZero())
	})

	It("keeps document order for equal scores", func() {
		out := priority.Prioritize([]priority.Section{{Heading: "Alpha"}, {Heading: "Omega"}, {Heading: "Misc"}}, priority.Signals{})
		Expect(priority.Headings(out)).To(Equal([]string{"Alpha", "Omega", "Misc"}))
	})

	It("boosts budget when the brief is budget constrained", func() {
		out := priority.Prioritize(sections, priority.Signals{BriefText: "We have a tight budget this quarter"})
		Expect(priority.Headings(out)[:3]).To(Equal([]string{"Key Details", "Budget", "Timeline"}))
	})

	It("boosts timeline when the brief is urgent", func() {
		plain := priority.Prioritize(sections, priority.Signals{})
		urgent := priority.Prioritize(sections, priority.Signals{Urgency: model.Urgency{Detected: true, Score: 9}})

		find := func(out []priority.Section, heading string) float64 {
			for _, s := range out {
				if s.Heading == heading {
					return s.Score
				}
			}
			return -1
		}
		Expect(find(urgent, "Timeline")).To(BeNumerically(">", find(plain, "Timeline")))
		Expect(find(urgent, "Budget")).To(Equal(find(plain, "Budget")))
	})

	It("boosts sections touched by a conflict", func() {
		out := priority.Prioritize(sections, priority.Signals{
			Conflicts: []model.Conflict{{Type: model.ConflictMultiFormat}},
		})
		Expect(priority.Headings(out)[:2]).To(Equal([]string{"Key Details", "Platforms"}))
	})

	It("boosts novel content", func() {
		out := priority.Prioritize([]priority.Section{
			{Heading: "Misc"},
			{Heading: "Vendor Quote (vendor_quote)", Key: "vendor_quote", Novel: true},
		}, priority.Signals{})
		Expect(out[0].Key).To(Equal("vendor_quote"))
	})

	It("classifies by key when the heading says nothing", func() {
		out := priority.Prioritize([]priority.Section{
			{Heading: "Misc"},
			{Heading: "Section 3", Key: "budget_total"},
		}, priority.Signals{})
		Expect(out[0].Heading).To(Equal("Section 3"))
		Expect(out[0].Score).To(BeNumerically("==", 80))
	})
})
