package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"scribe.app/engine/internal/http/handler"
	"scribe.app/engine/internal/model"
	"scribe.app/engine/internal/service"
)

var _ = Describe("BriefHandler", func() {
	var (
		router *gin.Engine
		svc    *mockBriefService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockBriefService{}
		h := handler.NewBriefHandler(svc, "X-Trace-Id")
		router.POST("/briefs", h.Submit)
		router.GET("/runs/:id", h.GetRun)
	})

	post := func(body string, headers map[string]string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/briefs", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	Describe("Submit", func() {
		It("returns 202 with the run id", func() {
			var got service.SubmitParams
			svc.submitFn = func(_ context.Context, params service.SubmitParams) (*model.DocumentRun, error) {
				got = params
				return &model.DocumentRun{ID: 77, Status: model.RunStatusQueued}, nil
			}

			w := post(`{"brief":{"title":"Launch"},"template_type":"video","complexity":"simple","schema":[{"name":"Title","type":"title"}]}`,
				map[string]string{"X-Trace-Id": "trace-1"})

			Expect(w.Code).To(Equal(http.StatusAccepted))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp).To(HaveKeyWithValue("run_id", BeNumerically("==", 77)))
			Expect(resp).To(HaveKeyWithValue("status", "queued"))

			Expect(got.Brief).To(HaveKeyWithValue("title", "Launch"))
			Expect(got.TemplateType).To(Equal("video"))
			Expect(got.Complexity).To(Equal("simple"))
			Expect(string(got.Schema)).To(ContainSubstring(`"Title"`))
			Expect(got.TraceID).To(HaveValue(Equal("trace-1")))
		})

		It("leaves the trace id unset without a header or span", func() {
			var got service.SubmitParams
			svc.submitFn = func(_ context.Context, params service.SubmitParams) (*model.DocumentRun, error) {
				got = params
				return &model.DocumentRun{ID: 1, Status: model.RunStatusQueued}, nil
			}

			Expect(post(`{"brief":{"a":"b"},"template_type":"video"}`, nil).Code).To(Equal(http.StatusAccepted))
			Expect(got.TraceID).To(BeNil())
		})

		DescribeTable("returns 400 for unusable bodies",
			func(body string) {
				Expect(post(body, nil).Code).To(Equal(http.StatusBadRequest))
			},
			Entry("broken JSON", `{`),
			Entry("missing brief", `{"template_type":"video"}`),
			Entry("missing template type", `{"brief":{"a":"b"}}`),
		)

		It("returns 400 when the service rejects the brief", func() {
			svc.submitFn = func(context.Context, service.SubmitParams) (*model.DocumentRun, error) {
				return nil, fmt.Errorf("%w: brief is empty", service.ErrInvalidBrief)
			}
			Expect(post(`{"brief":{},"template_type":"video"}`, nil).Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 500 when the service fails", func() {
			svc.submitFn = func(context.Context, service.SubmitParams) (*model.DocumentRun, error) {
				return nil, errors.New("redis down")
			}
			w := post(`{"brief":{"a":"b"},"template_type":"video"}`, nil)
			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Expect(w.Body.String()).NotTo(ContainSubstring("redis"))
		})
	})

	Describe("GetRun", func() {
		get := func(path string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			return w
		}

		It("returns the stored document", func() {
			svc.getFn = func(_ context.Context, runID int64, withEvals bool) (*service.RunView, error) {
				Expect(withEvals).To(BeTrue())
				return &service.RunView{
					Run: &model.DocumentRun{
						ID:           runID,
						Status:       model.RunStatusCompleted,
						TemplateType: "video",
						Blocks:       json.RawMessage(`[{"type":"divider"}]`),
					},
					Evals: []model.LLMEval{{Stage: "extraction", Model: "gpt-4o-mini"}},
				}, nil
			}

			w := get("/runs/12?evals=true")
			Expect(w.Code).To(Equal(http.StatusOK))

			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp).To(HaveKeyWithValue("status", "completed"))
			Expect(resp["blocks"]).To(ConsistOf(map[string]any{"type": "divider"}))
			Expect(resp["evals"]).To(HaveLen(1))
		})

		It("returns 404 for an unknown run", func() {
			Expect(get("/runs/12").Code).To(Equal(http.StatusNotFound))
		})

		It("returns 400 for a malformed id", func() {
			Expect(get("/runs/abc").Code).To(Equal(http.StatusBadRequest))
			Expect(get("/runs/0").Code).To(Equal(http.StatusBadRequest))
		})
	})
})

var _ = Describe("TemplateHandler", func() {
	var (
		router *gin.Engine
		svc    *mockTemplateService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockTemplateService{}
		router.DELETE("/templates/:type/cache", handler.NewTemplateHandler(svc).InvalidateCache)
	})

	It("invalidates and returns 204", func() {
		var gotType, gotTier string
		svc.invalidateFn = func(_ context.Context, templateType, complexity string) error {
			gotType, gotTier = templateType, complexity
			return nil
		}

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/templates/video/cache?complexity=complex", nil))

		Expect(w.Code).To(Equal(http.StatusNoContent))
		Expect(gotType).To(Equal("video"))
		Expect(gotTier).To(Equal("complex"))
	})

	It("returns 500 when the cache is unreachable", func() {
		svc.invalidateFn = func(context.Context, string, string) error {
			return errors.New("dial tcp: refused")
		}

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/templates/video/cache", nil))
		Expect(w.Code).To(Equal(http.StatusInternalServerError))
	})
})
