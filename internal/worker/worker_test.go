package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"scribe.app/engine/internal/assemble"
	"scribe.app/engine/internal/block"
	"scribe.app/engine/internal/model"
	"scribe.app/engine/internal/properties"
	"scribe.app/engine/internal/queue"
	"scribe.app/engine/internal/template"
	"scribe.app/engine/internal/worker"
)

var _ = Describe("Worker", func() {
	var (
		ctx       context.Context
		consumer  *mockConsumer
		runs      *mockRunStore
		assembler *mockAssembler
		w         *worker.Worker
		msg       queue.Message
	)

	BeforeEach(func() {
		ctx = context.Background()
		consumer = &mockConsumer{}
		runs = newMockRunStore(&model.DocumentRun{
			ID:           100,
			TemplateType: "video",
			Complexity:   model.ComplexityStandard,
			Status:       model.RunStatusQueued,
			Brief:        model.Brief{"title": "Launch"},
			RecordSchema: json.RawMessage(`[{"name":"Title","type":"title"}]`),
		})
		assembler = &mockAssembler{}
		stores := &mockStores{runs: runs}
		w = worker.New(consumer, stores, &mockTxRunner{stores: stores}, worker.NewProcessor(assembler), worker.Config{MaxAttempts: 3})
		msg = queue.Message{ID: "1-0", RunID: 100, Attempt: 1}
	})

	It("assembles the run and stores the document", func() {
		var got assemble.Request
		assembler.runFn = func(_ context.Context, req assemble.Request) (assemble.Result, error) {
			got = req
			return assemble.Result{
				Blocks:       []block.Block{block.Heading(2, "Overview")},
				Properties:   map[string]any{"Title": "Launch"},
				SectionOrder: []string{"Overview"},
			}, nil
		}

		Expect(w.HandleMessage(ctx, msg)).To(Succeed())

		Expect(got.Template).To(Equal(template.Identity{Type: "video", Complexity: model.ComplexityStandard}))
		Expect(got.Schema).To(HaveLen(1))
		Expect(runs.running).To(ConsistOf(int64(100)))
		Expect(runs.completed).To(HaveKey(int64(100)))
		Expect(string(runs.completed[100].SectionOrder)).To(Equal(`["Overview"]`))
		Expect(string(runs.completed[100].Properties)).To(ContainSubstring(`"Title":"Launch"`))
		Expect(consumer.Acked()).To(ConsistOf("1-0"))
	})

	It("acks and skips a run that no longer exists", func() {
		msg.RunID = 404
		Expect(w.HandleMessage(ctx, msg)).To(Succeed())
		Expect(consumer.Acked()).To(ConsistOf("1-0"))
		Expect(runs.completed).To(BeEmpty())
	})

	It("does not assemble a completed run twice", func() {
		runs.runs[100].Status = model.RunStatusCompleted
		called := false
		assembler.runFn = func(context.Context, assemble.Request) (assemble.Result, error) {
			called = true
			return assemble.Result{}, nil
		}

		Expect(w.HandleMessage(ctx, msg)).To(Succeed())
		Expect(called).To(BeFalse())
		Expect(consumer.Acked()).To(ConsistOf("1-0"))
	})

	It("fails the run with diagnostics when property mapping stays invalid", func() {
		assembler.runFn = func(context.Context, assemble.Request) (assemble.Result, error) {
			return assemble.Result{}, fmt.Errorf("mapping properties: %w", &properties.TerminalError{
				Attempted:   map[string]any{"Status": "Maybe"},
				Corrections: 1,
				Cause: &properties.ValidationError{Problems: []properties.Problem{
					{Field: "Status", Reason: "not one of the options"},
				}},
			})
		}

		Expect(w.HandleMessage(ctx, msg)).To(Succeed())

		Expect(runs.failed).To(HaveKey(int64(100)))
		f := runs.failed[100]
		Expect(f.reason).To(Equal("property mapping failed validation"))
		Expect(f.detail).To(HaveKeyWithValue("attempted", map[string]any{"Status": "Maybe"}))
		Expect(f.detail["problems"]).To(ConsistOf(map[string]any{"field": "Status", "reason": "not one of the options"}))
		Expect(consumer.Acked()).To(ConsistOf("1-0"))
		Expect(consumer.requeued).To(BeEmpty())
	})

	DescribeTable("terminal engine errors fail the run without retrying",
		func(err error, reason string) {
			assembler.runFn = func(context.Context, assemble.Request) (assemble.Result, error) {
				return assemble.Result{}, err
			}

			Expect(w.HandleMessage(ctx, msg)).To(Succeed())
			Expect(runs.failed[100].reason).To(Equal(reason))
			Expect(consumer.requeued).To(BeEmpty())
		},
		Entry("missing template", fmt.Errorf("fetching template video: %w", template.ErrTemplateNotFound), "template unavailable"),
		Entry("empty document", assemble.ErrEmptyDocument, "nothing to assemble"),
		Entry("cancelled call", context.Canceled, "assembly failed"),
	)

	It("fails the run when the record schema is malformed", func() {
		runs.runs[100].RecordSchema = json.RawMessage(`[{"name":"X","type":"hologram"}]`)
		Expect(w.HandleMessage(ctx, msg)).To(Succeed())
		Expect(runs.failed[100].reason).To(Equal("invalid record schema"))
	})

	It("requeues a retryable failure", func() {
		assembler.runFn = func(context.Context, assemble.Request) (assemble.Result, error) {
			return assemble.Result{}, errors.New("connection reset by peer")
		}

		Expect(w.HandleMessage(ctx, msg)).To(HaveOccurred())
		Expect(consumer.requeued).To(ConsistOf("1-0"))
		Expect(consumer.dead).To(BeEmpty())
		Expect(runs.failed).To(BeEmpty())
	})

	It("dead-letters and fails the run once attempts run out", func() {
		assembler.runFn = func(context.Context, assemble.Request) (assemble.Result, error) {
			return assemble.Result{}, errors.New("connection reset by peer")
		}
		msg.Attempt = 3

		Expect(w.HandleMessage(ctx, msg)).To(HaveOccurred())
		Expect(consumer.dead).To(HaveLen(1))
		Expect(consumer.requeued).To(BeEmpty())
		Expect(runs.failed[100].reason).To(Equal("attempts exhausted"))
		Expect(runs.failed[100].detail).To(HaveKeyWithValue("attempts", BeNumerically("==", 3)))
	})

	It("recovers from a panic and requeues", func() {
		assembler.runFn = func(context.Context, assemble.Request) (assemble.Result, error) {
			panic("boom")
		}

		Expect(w.HandleMessage(ctx, msg)).To(MatchError(ContainSubstring("panic: boom")))
		Expect(consumer.requeued).To(ConsistOf("1-0"))
	})

	It("drains batches until stopped", func() {
		consumer.batches = [][]queue.Message{{msg}}
		done := make(chan error, 1)
		go func() { done <- w.Run(ctx) }()

		Eventually(consumer.Acked).Should(ConsistOf("1-0"))
		w.Stop()
		Eventually(done).Should(Receive(BeNil()))
	})

	It("stops when its context ends", func() {
		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- w.Run(runCtx) }()

		cancel()
		Eventually(done, time.Second).Should(Receive(MatchError(context.Canceled)))
	})

	Describe("Abandon", func() {
		It("fails the run and dead-letters the message", func() {
			Expect(w.Abandon(ctx, msg, "delivered 5 times without acknowledgement")).To(Succeed())

			Expect(runs.failed).To(HaveKey(int64(100)))
			Expect(runs.failed[100].reason).To(Equal("abandoned"))
			Expect(runs.failed[100].detail).To(HaveKeyWithValue("error", "delivered 5 times without acknowledgement"))
			Expect(consumer.dead).To(ConsistOf("1-0: delivered 5 times without acknowledgement"))
		})

		It("only acknowledges a run that already completed", func() {
			runs.runs[100].Status = model.RunStatusCompleted

			Expect(w.Abandon(ctx, msg, "gone")).To(Succeed())
			Expect(consumer.Acked()).To(ConsistOf("1-0"))
			Expect(consumer.dead).To(BeEmpty())
			Expect(runs.failed).To(BeEmpty())
		})
	})
})
