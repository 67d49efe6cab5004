package resolve_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"scribe.app/engine/internal/resolve"
)

var _ = Describe("Resolve", func() {
	DescribeTable("finds values across naming conventions",
		func(name string, data map[string]any, want any, stage resolve.Stage) {
			m, ok := resolve.ResolveKey(name, data)
			Expect(ok).To(BeTrue())
			Expect(m.Value).To(Equal(want))
			Expect(m.Stage).To(Equal(stage))
		},
		Entry("exact key", "client", map[string]any{"client": "Acme"}, "Acme", resolve.StageExact),
		Entry("snake to Title Case", "due_date", map[string]any{"Due Date": "2025-11-01"}, "2025-11-01", resolve.StageVariant),
		Entry("snake to spaced lower", "due_date", map[string]any{"due date": "2025-11-01"}, "2025-11-01", resolve.StageVariant),
		Entry("camel to snake", "dueDate", map[string]any{"due_date": "Friday"}, "Friday", resolve.StageVariant),
		Entry("normalized punctuation", "Client-Name!", map[string]any{"client_name": "Acme"}, "Acme", resolve.StageNormalized),
		Entry("near-identical containment", "deliverable", map[string]any{"deliverables": "3 reels"}, "3 reels", resolve.StageContains),
		Entry("canonical alias", "description", map[string]any{"Raw Brief": "Need a reel"}, "Need a reel", resolve.StageAlias),
	)

	It("is order-independent for equivalent spellings", func() {
		a, okA := resolve.Resolve("due_date", map[string]any{"Due Date": "2025-11-01"})
		b, okB := resolve.Resolve("due_date", map[string]any{"due date": "2025-11-01"})
		Expect(okA).To(BeTrue())
		Expect(okB).To(BeTrue())
		Expect(a).To(Equal(b))
	})

	It("is idempotent", func() {
		data := map[string]any{"Project Budget": "5k", "budget_notes": "flexible", "budget": "10k"}
		first, _ := resolve.ResolveKey("Budget", data)
		for range 5 {
			again, _ := resolve.ResolveKey("Budget", data)
			Expect(again).To(Equal(first))
		}
		Expect(first.Value).To(Equal("10k"))
	})

	It("rejects substring hits below the similarity threshold", func() {
		_, ok := resolve.Resolve("budget", map[string]any{"project_budget_breakdown": "x"})
		Expect(ok).To(BeFalse())
	})

	It("misses cleanly on unrelated or empty data", func() {
		_, ok := resolve.Resolve("budget", map[string]any{"timeline": "2 weeks"})
		Expect(ok).To(BeFalse())
		_, ok = resolve.Resolve("budget", nil)
		Expect(ok).To(BeFalse())
		_, ok = resolve.Resolve("", map[string]any{"": "x"})
		Expect(ok).To(BeFalse())
	})

	It("descends into nested objects", func() {
		data := map[string]any{"project": map[string]any{"meta": map[string]any{"client_name": "Acme"}}}
		m, ok := resolve.ResolveNested("client", data)
		Expect(ok).To(BeTrue())
		Expect(m.Key).To(Equal("client_name"))
		Expect(m.Value).To(Equal("Acme"))
	})
})

var _ = Describe("naming helpers", func() {
	DescribeTable("Humanize",
		func(in, want string) {
			Expect(resolve.Humanize(in)).To(Equal(want))
		},
		Entry("snake", "due_date", "Due Date"),
		Entry("camel with acronyms", "ctaUrl", "CTA URL"),
		Entry("internal key", "_smart_notes", "Smart Notes"),
		Entry("spaced", "target audience", "Target Audience"),
	)

	It("converts between conventions", func() {
		Expect(resolve.ToSnake("dueDate")).To(Equal("due_date"))
		Expect(resolve.ToSnake("Due Date")).To(Equal("due_date"))
		Expect(resolve.ToCamel("due_date")).To(Equal("dueDate"))
		Expect(resolve.ToTitle("due_date")).To(Equal("Due Date"))
		Expect(resolve.Normalize("Due-Date #1")).To(Equal("duedate1"))
	})

	It("scores similarity on edit distance", func() {
		Expect(resolve.Similarity("", "")).To(Equal(1.0))
		Expect(resolve.Similarity("abc", "abc")).To(Equal(1.0))
		Expect(resolve.Similarity("deliverable", "deliverables")).To(BeNumerically(">", 0.9))
		Expect(resolve.Similarity("budget", "timeline")).To(BeNumerically("<", 0.5))
	})

	It("groups aliases with their canonical name first", func() {
		group := resolve.Aliases("deadline")
		Expect(group).NotTo(BeEmpty())
		Expect(group[0]).To(Equal("due_date"))
		Expect(group).To(ContainElement("delivery_date"))
		Expect(resolve.Aliases("nonsense")).To(BeNil())
	})
})
