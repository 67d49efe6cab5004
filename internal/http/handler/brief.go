package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"scribe.app/engine/common/id"
	"scribe.app/engine/internal/http/dto"
	"scribe.app/engine/internal/service"
)

type BriefHandler struct {
	service     service.BriefService
	traceHeader string
}

func NewBriefHandler(service service.BriefService, traceHeader string) *BriefHandler {
	return &BriefHandler{
		service:     service,
		traceHeader: traceHeader,
	}
}

func (h *BriefHandler) Submit(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.SubmitBriefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid brief request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	traceID := c.GetHeader(h.traceHeader)
	if traceID == "" {
		if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
			traceID = spanCtx.TraceID().String()
		}
	}
	params := service.SubmitParams{
		Brief:        req.Brief,
		TemplateType: req.TemplateType,
		Complexity:   req.Complexity,
		Schema:       req.Schema,
	}
	if traceID != "" {
		params.TraceID = &traceID
	}

	run, err := h.service.Submit(ctx, params)
	if err != nil {
		if errors.Is(err, service.ErrInvalidBrief) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.ErrorContext(ctx, "failed to submit brief", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit brief"})
		return
	}

	c.JSON(http.StatusAccepted, dto.SubmitBriefResponse{
		RunID:  run.ID,
		Status: string(run.Status),
	})
}

func (h *BriefHandler) GetRun(c *gin.Context) {
	ctx := c.Request.Context()

	runID, err := id.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}
	withEvals, _ := strconv.ParseBool(c.Query("evals"))

	view, err := h.service.Get(ctx, runID, withEvals)
	if err != nil {
		if errors.Is(err, service.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to fetch run", "error", err, "run_id", runID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch run"})
		return
	}

	c.JSON(http.StatusOK, dto.NewRunResponse(view.Run, view.Evals))
}
