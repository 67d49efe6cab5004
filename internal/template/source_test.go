package template_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"scribe.app/engine/internal/block"
	"scribe.app/engine/internal/model"
	"scribe.app/engine/internal/template"
)

const sampleTemplate = `
blocks:
  - kind: heading_2
    text: Overview
  - kind: toggle
    text: Instructions
    children:
      - kind: paragraph
        text: Summarize the **client** ask
  - kind: divider
`

type countingSource struct {
	calls  int
	blocks []block.Block
	err    error
}

func (s *countingSource) Fetch(_ context.Context, _ template.Identity) ([]block.Block, error) {
	s.calls++
	return s.blocks, s.err
}

var _ = Describe("FileSource", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	write := func(name, body string) {
		Expect(os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644)).To(Succeed())
	}

	It("prefers the complexity tier and falls back to the base file", func() {
		write("video-production.yaml", sampleTemplate)
		write("video-production.complex.yaml", "blocks:\n  - kind: heading_1\n    text: Complex\n")
		src := template.NewFileSource(dir)

		blocks, err := src.Fetch(context.Background(), template.Identity{Type: "Video Production", Complexity: model.ComplexityComplex})
		Expect(err).NotTo(HaveOccurred())
		Expect(blocks[0].PlainText()).To(Equal("Complex"))

		blocks, err = src.Fetch(context.Background(), template.Identity{Type: "video_production", Complexity: model.ComplexitySimple})
		Expect(err).NotTo(HaveOccurred())
		Expect(blocks).To(HaveLen(3))
		Expect(blocks[1].Kind).To(Equal(block.KindToggle))
		Expect(blocks[1].Children[0].RichText).To(ContainElement(block.RichText{Content: "client", Bold: true}))
		Expect(blocks[2].Kind).To(Equal(block.KindDivider))
	})

	It("reports missing templates", func() {
		_, err := template.NewFileSource(dir).Fetch(context.Background(), template.Identity{Type: "nope"})
		Expect(errors.Is(err, template.ErrTemplateNotFound)).To(BeTrue())

		_, err = template.NewFileSource(dir).Fetch(context.Background(), template.Identity{Type: "../"})
		Expect(errors.Is(err, template.ErrInvalidIdentity)).To(BeTrue())
	})
})

var _ = Describe("CachedSource", func() {
	var (
		mr     *miniredis.Miniredis
		client *redis.Client
		inner  *countingSource
		cached *template.CachedSource
		ctx    context.Context
	)

	BeforeEach(func() {
		mr = miniredis.RunT(GinkgoT())
		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		DeferCleanup(client.Close)
		inner = &countingSource{blocks: []block.Block{block.Heading(2, "Overview")}}
		cached = template.NewCachedSource(inner, client, time.Minute, "test:tpl:")
		ctx = context.Background()
	})

	It("serves repeat fetches from Redis until the TTL expires", func() {
		id := template.Identity{Type: "social", Complexity: model.ComplexityStandard}

		for range 3 {
			blocks, err := cached.Fetch(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(blocks[0].PlainText()).To(Equal("Overview"))
		}
		Expect(inner.calls).To(Equal(1))
		Expect(mr.Exists("test:tpl:social:standard")).To(BeTrue())

		mr.FastForward(2 * time.Minute)
		_, err := cached.Fetch(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(inner.calls).To(Equal(2))
	})

	It("invalidates every tier of a type", func() {
		_, _ = cached.Fetch(ctx, template.Identity{Type: "social", Complexity: model.ComplexitySimple})
		_, _ = cached.Fetch(ctx, template.Identity{Type: "social"})
		Expect(cached.Invalidate(ctx, template.Identity{Type: "social"})).To(Succeed())
		Expect(mr.Keys()).To(BeEmpty())
	})

	It("falls back to the inner source when Redis is down", func() {
		mr.Close()
		blocks, err := cached.Fetch(ctx, template.Identity{Type: "social"})
		Expect(err).NotTo(HaveOccurred())
		Expect(blocks).To(HaveLen(1))
	})

	It("does not cache inner failures", func() {
		inner.err = template.ErrTemplateNotFound
		_, err := cached.Fetch(ctx, template.Identity{Type: "social"})
		Expect(err).To(MatchError(template.ErrTemplateNotFound))
		Expect(mr.Keys()).To(BeEmpty())
	})
})
