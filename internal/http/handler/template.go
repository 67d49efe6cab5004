package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"scribe.app/engine/internal/service"
	"scribe.app/engine/internal/template"
)

type TemplateHandler struct {
	service service.TemplateService
}

func NewTemplateHandler(service service.TemplateService) *TemplateHandler {
	return &TemplateHandler{service: service}
}

// InvalidateCache drops the cached template so the next run rereads it.
// ?complexity= limits it to one tier.
func (h *TemplateHandler) InvalidateCache(c *gin.Context) {
	ctx := c.Request.Context()

	err := h.service.Invalidate(ctx, c.Param("type"), c.Query("complexity"))
	if err != nil {
		if errors.Is(err, template.ErrInvalidIdentity) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.ErrorContext(ctx, "failed to invalidate template cache", "error", err, "template_type", c.Param("type"))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to invalidate template cache"})
		return
	}

	c.Status(http.StatusNoContent)
}
