package router

import (
	"github.com/gin-gonic/gin"

	"scribe.app/engine/internal/http/handler"
)

func TemplateRouter(rg *gin.RouterGroup, h *handler.TemplateHandler) {
	rg.DELETE("/:type/cache", h.InvalidateCache)
}
