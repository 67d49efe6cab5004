package generate_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"scribe.app/engine/common/llm"
	"scribe.app/engine/internal/block"
	"scribe.app/engine/internal/evals"
	"scribe.app/engine/internal/generate"
	"scribe.app/engine/internal/model"
)

type mockReasoner struct {
	completeFn func(ctx context.Context, req llm.CompletionRequest) (*llm.Completion, error)
	calls      int
}

func (m *mockReasoner) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.Completion, error) {
	m.calls++
	if m.completeFn != nil {
		return m.completeFn(ctx, req)
	}
	return nil, errors.New("mock not configured")
}

func (m *mockReasoner) Model() string { return "test-model" }

type mockEvalStore struct {
	created []*model.LLMEval
}

func (m *mockEvalStore) Create(_ context.Context, e *model.LLMEval) (*model.LLMEval, error) {
	m.created = append(m.created, e)
	return e, nil
}

func (m *mockEvalStore) ListByRun(context.Context, int64) ([]model.LLMEval, error) {
	return nil, nil
}

var _ = Describe("LLMOrganizer", func() {
	var (
		reasoner *mockReasoner
		evalSt   *mockEvalStore
		org      *generate.LLMOrganizer
		ctx      context.Context
		value    map[string]any
	)

	BeforeEach(func() {
		reasoner = &mockReasoner{}
		evalSt = &mockEvalStore{}
		org = generate.NewLLMOrganizer(reasoner, evals.NewRecorder(evalSt), 0)
		ctx = context.Background()
		value = map[string]any{"tone": "playful", "music": "upbeat", "style": "handheld"}
	})

	It("sends heading, instructions and data and records the call", func() {
		reasoner.completeFn = func(_ context.Context, req llm.CompletionRequest) (*llm.Completion, error) {
			Expect(req.JSONObject).To(BeTrue())
			Expect(req.UserPrompt).To(ContainSubstring("## Section heading\nCreative Direction"))
			Expect(req.UserPrompt).To(ContainSubstring("- keep it short"))
			Expect(req.UserPrompt).To(ContainSubstring(`"music": "upbeat"`))
			return &llm.Completion{Text: `{"blocks": [
				{"type": "heading", "content": "Look"},
				{"type": "paragraph", "content": "Handheld and **playful**."},
				{"type": "bulleted_list", "content": "Audio", "items": ["upbeat", " "]}
			]}`, PromptTokens: 20, CompletionTokens: 10}, nil
		}

		blocks, err := org.Organize(ctx, "Creative Direction", []string{"keep it short"}, value)
		Expect(err).NotTo(HaveOccurred())
		Expect(kinds(blocks)).To(Equal([]block.Kind{block.KindHeading3, block.KindParagraph, block.KindParagraph, block.KindBulleted}))
		Expect(blocks[2].RichText[0].Bold).To(BeTrue())

		Expect(evalSt.created).To(HaveLen(1))
		Expect(evalSt.created[0].Stage).To(Equal(evals.StageOrganization))
		Expect(evalSt.created[0].Fallback).To(BeFalse())
		Expect(*evalSt.created[0].PromptTokens).To(Equal(20))
	})

	It("rejects an unusable layout and records it as a fallback", func() {
		reasoner.completeFn = func(context.Context, llm.CompletionRequest) (*llm.Completion, error) {
			return &llm.Completion{Text: `{"blocks": [{"type": "table", "content": "x"}]}`}, nil
		}

		blocks, err := org.Organize(ctx, "Creative", nil, value)
		Expect(err).To(MatchError(generate.ErrInvalidLayout))
		Expect(blocks).To(BeNil())
		Expect(evalSt.created).To(HaveLen(1))
		Expect(evalSt.created[0].Fallback).To(BeTrue())
		Expect(evalSt.created[0].Error).NotTo(BeNil())
	})

	It("lets the generator fall back when the service errors", func() {
		reasoner.completeFn = func(context.Context, llm.CompletionRequest) (*llm.Completion, error) {
			return nil, errors.New("503 service unavailable")
		}

		blocks := generate.New(generate.Options{Organizer: org}).Generate(ctx, generate.Request{Value: value, Heading: "Creative"})
		Expect(reasoner.calls).To(Equal(1))
		Expect(blocks).To(HaveLen(3))
		Expect(blocks[0].PlainText()).To(Equal("Music: upbeat"))
	})
})

var _ = DescribeTable("ParseLayout",
	func(text string, want []block.Kind, wantErr bool) {
		blocks, err := generate.ParseLayout(text)
		if wantErr {
			Expect(err).To(MatchError(generate.ErrInvalidLayout))
			return
		}
		Expect(err).NotTo(HaveOccurred())
		Expect(kinds(blocks)).To(Equal(want))
	},
	Entry("bare array", `[{"type":"paragraph","content":"hi"},{"type":"divider"}]`,
		[]block.Kind{block.KindParagraph, block.KindDivider}, false),
	Entry("fenced and wrapped", "```json\n{\"blocks\":[{\"type\":\"Numbered_List\",\"items\":[\"a\",\"b\"]}]}\n```",
		[]block.Kind{block.KindNumbered, block.KindNumbered}, false),
	Entry("heading followed by content", `[{"type":"heading","content":"H"},{"type":"paragraph","content":"p"}]`,
		[]block.Kind{block.KindHeading3, block.KindParagraph}, false),
	Entry("heading last", `[{"type":"paragraph","content":"p"},{"type":"heading","content":"H"}]`, nil, true),
	Entry("heading before divider", `[{"type":"heading","content":"H"},{"type":"divider"}]`, nil, true),
	Entry("empty paragraph", `[{"type":"paragraph","content":"  "}]`, nil, true),
	Entry("empty list", `[{"type":"bulleted_list","items":[]}]`, nil, true),
	Entry("unknown type", `[{"type":"table","content":"x"}]`, nil, true),
	Entry("no blocks", `{"blocks":[]}`, nil, true),
	Entry("not json", `Here is your layout`, nil, true),
)
