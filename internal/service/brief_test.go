package service_test

import (
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"scribe.app/engine/internal/model"
	"scribe.app/engine/internal/queue"
	"scribe.app/engine/internal/service"
	"scribe.app/engine/internal/template"
)

var _ = Describe("BriefService", func() {
	var (
		ctx      context.Context
		runs     *mockRunStore
		evals    *mockEvalStore
		producer *mockProducer
		svc      service.BriefService
	)

	BeforeEach(func() {
		ctx = context.Background()
		runs = &mockRunStore{}
		evals = &mockEvalStore{}
		producer = &mockProducer{}
		svc = service.NewBriefService(runs, evals, producer, nil)
	})

	Describe("Submit", func() {
		It("stores a queued run and enqueues it", func() {
			trace := "4bf92f3577b34da6a3ce929d0e0e4736"
			run, err := svc.Submit(ctx, service.SubmitParams{
				Brief:        model.Brief{"title": "Launch video"},
				TemplateType: "Video",
				Complexity:   "complex",
				Schema:       json.RawMessage(`[{"name":"Title","type":"title"}]`),
				TraceID:      &trace,
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(run.ID).NotTo(BeZero())
			Expect(run.Status).To(Equal(model.RunStatusQueued))
			Expect(run.Complexity).To(Equal(model.ComplexityComplex))
			Expect(runs.created).To(BeIdenticalTo(run))
			Expect(producer.enqueued).To(ConsistOf(queue.BriefMessage{RunID: run.ID, TraceID: &trace, Attempt: 1}))
		})

		It("defaults an unknown complexity to standard", func() {
			run, err := svc.Submit(ctx, service.SubmitParams{Brief: model.Brief{"a": "b"}, TemplateType: "video", Complexity: "extreme"})
			Expect(err).NotTo(HaveOccurred())
			Expect(run.Complexity).To(Equal(model.ComplexityStandard))
		})

		DescribeTable("rejects unusable input",
			func(params service.SubmitParams) {
				_, err := svc.Submit(ctx, params)
				Expect(err).To(MatchError(service.ErrInvalidBrief))
				Expect(runs.created).To(BeNil())
				Expect(producer.enqueued).To(BeEmpty())
			},
			Entry("empty brief", service.SubmitParams{TemplateType: "video"}),
			Entry("missing template", service.SubmitParams{Brief: model.Brief{"a": "b"}, TemplateType: "  "}),
			Entry("bad schema", service.SubmitParams{
				Brief:        model.Brief{"a": "b"},
				TemplateType: "video",
				Schema:       json.RawMessage(`[{"name":"X","type":"hologram"}]`),
			}),
		)

		It("fails the run when it cannot be enqueued", func() {
			producer.enqueueFn = func(context.Context, queue.BriefMessage) error {
				return errors.New("redis down")
			}

			_, err := svc.Submit(ctx, service.SubmitParams{Brief: model.Brief{"a": "b"}, TemplateType: "video"})
			Expect(err).To(MatchError(ContainSubstring("redis down")))
			Expect(runs.failed).To(HaveKeyWithValue(runs.created.ID, "enqueue failed"))
		})
	})

	Describe("Get", func() {
		It("maps a missing run to ErrRunNotFound", func() {
			_, err := svc.Get(ctx, 1, false)
			Expect(err).To(MatchError(service.ErrRunNotFound))
		})

		It("includes evals on request", func() {
			runs.getByIDFn = func(_ context.Context, id int64) (*model.DocumentRun, error) {
				return &model.DocumentRun{ID: id, Status: model.RunStatusCompleted}, nil
			}
			evals.listFn = func(_ context.Context, runID int64) ([]model.LLMEval, error) {
				return []model.LLMEval{{ID: 1, Stage: "extraction"}}, nil
			}

			view, err := svc.Get(ctx, 7, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(view.Run.ID).To(Equal(int64(7)))
			Expect(view.Evals).To(HaveLen(1))

			view, err = svc.Get(ctx, 7, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(view.Evals).To(BeEmpty())
		})
	})
})

var _ = Describe("TemplateService", func() {
	It("invalidates one tier or all of them", func() {
		cache := &mockTemplateCache{}
		svc := service.NewTemplateService(cache)

		Expect(svc.Invalidate(context.Background(), "video", "")).To(Succeed())
		Expect(svc.Invalidate(context.Background(), "video", "complex")).To(Succeed())

		Expect(cache.invalidated).To(Equal([]template.Identity{
			{Type: "video"},
			{Type: "video", Complexity: model.ComplexityComplex},
		}))
	})

	It("rejects an empty template type", func() {
		svc := service.NewTemplateService(&mockTemplateCache{})
		Expect(svc.Invalidate(context.Background(), "", "")).To(MatchError(template.ErrInvalidIdentity))
	})
})
