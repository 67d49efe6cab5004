package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"scribe.app/engine/core/config"
	"scribe.app/engine/internal/assemble"
	"scribe.app/engine/internal/block"
	"scribe.app/engine/internal/model"
	"scribe.app/engine/internal/pipeline"
	"scribe.app/engine/internal/template"
)

var _ = Describe("Pipeline", func() {
	var (
		ctx    context.Context
		engine *assemble.Engine
	)

	BeforeEach(func() {
		ctx = context.Background()
		engine = pipeline.New(pipeline.Options{
			Templates:        template.NewFileSource("../../templates"),
			MaxCharsPerBlock: 1800,
		})
	})

	run := func(brief model.Brief, id template.Identity) assemble.Result {
		res, err := engine.Run(ctx, assemble.Request{Brief: brief, Template: id})
		Expect(err).NotTo(HaveOccurred())
		return res
	}

	It("assembles the bundled video template without a reasoner", func() {
		res := run(model.Brief{
			"client_name":          "Acme",
			"deliverables":         "One 60 second hero cut and three 15 second cutdowns",
			"parking_instructions": "Use the loading dock on Fifth Street",
		}, template.Identity{Type: "video"})

		Expect(res.Blocks).NotTo(BeEmpty())
		Expect(res.Stats.ExtractionFallback).To(BeTrue())
		Expect(block.ToggleDepth(res.Blocks)).To(BeNumerically("<=", block.MaxToggleDepth))

		Expect(plainTexts(res.Blocks)).To(ContainElement("Production brief for Acme"))
		Expect(between(res.Blocks, "Deliverables")).To(ContainElement(ContainSubstring("hero cut")))

		Expect(headingTexts(res.Blocks)).To(ContainElement(assemble.AdditionalInformation))
		Expect(headingTexts(res.Blocks)).To(ContainElement("Parking Instructions (parking_instructions)"))
		Expect(between(res.Blocks, "Parking Instructions")).To(ConsistOf("Use the loading dock on Fifth Street"))

		for _, text := range plainTexts(res.Blocks) {
			Expect(text).NotTo(ContainSubstring("[INSTRUCTION"))
			Expect(text).NotTo(ContainSubstring("[SOP"))
		}
		Expect(orphans(res.Blocks)).To(BeEmpty())
	})

	It("picks the complexity-specific template when one exists", func() {
		res := run(model.Brief{
			"client_name":  "Acme",
			"due_date":     "2025-11-14",
			"deliverables": "Launch film",
		}, template.Identity{Type: "video", Complexity: model.ComplexityComplex})

		Expect(plainTexts(res.Blocks)).To(ContainElement(HavePrefix("Campaign brief for Acme")))
	})

	It("reports unknown templates", func() {
		_, err := engine.Run(ctx, assemble.Request{
			Brief:    model.Brief{"deliverables": "Recap"},
			Template: template.Identity{Type: "podcast"},
		})
		Expect(errors.Is(err, template.ErrTemplateNotFound)).To(BeTrue())
	})

	Describe("FromConfig", func() {
		It("wires a fallback engine when no reasoner key is configured", func() {
			cfg := config.Config{
				Engine:       config.EngineConfig{MaxCharsPerBlock: 1800, OrganizerEnabled: true},
				OrganizerLLM: config.LLMConfig{Timeout: time.Second},
			}
			e, err := pipeline.FromConfig(cfg, template.NewFileSource("../../templates"), nil)
			Expect(err).NotTo(HaveOccurred())

			res, err := e.Run(ctx, assemble.Request{
				Brief:    model.Brief{"event_name": "Spring Gala", "location": "Pier 17"},
				Template: template.Identity{Type: "event"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(plainTexts(res.Blocks)).To(ContainElement("Coverage brief for Spring Gala"))
		})

		It("builds reasoning clients when a key is configured", func() {
			cfg := config.Config{
				ReasonerLLM:  config.LLMConfig{Provider: "openai", APIKey: "test-key"},
				OrganizerLLM: config.LLMConfig{Provider: "anthropic", APIKey: "test-key"},
				Engine:       config.EngineConfig{OrganizerEnabled: true, MaxCorrections: 1},
			}
			e, err := pipeline.FromConfig(cfg, template.NewFileSource("../../templates"), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(e).NotTo(BeNil())
		})
	})
})

func plainTexts(blocks []block.Block) []string {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, b.PlainText())
	}
	return out
}

func headingTexts(blocks []block.Block) []string {
	var out []string
	for _, b := range blocks {
		if b.Kind.IsHeading() {
			out = append(out, b.PlainText())
		}
	}
	return out
}

// between returns the texts under the first heading containing title, up to
// the next heading or divider.
func between(blocks []block.Block, title string) []string {
	var out []string
	inside := false
	for _, b := range blocks {
		if b.Kind.IsHeading() || b.Kind == block.KindDivider {
			if inside {
				break
			}
			inside = b.Kind.IsHeading() && strings.Contains(b.PlainText(), title)
			continue
		}
		if inside {
			out = append(out, b.PlainText())
		}
	}
	return out
}

func orphans(blocks []block.Block) []string {
	var out []string
	for i, b := range blocks {
		if !b.Kind.IsHeading() {
			continue
		}
		if i == len(blocks)-1 {
			out = append(out, b.PlainText())
			continue
		}
		next := blocks[i+1]
		if next.Kind == block.KindDivider || (next.Kind.IsHeading() && next.Kind.HeadingLevel() <= b.Kind.HeadingLevel()) {
			out = append(out, b.PlainText())
		}
	}
	return out
}
