package router

import (
	"github.com/gin-gonic/gin"

	"scribe.app/engine/internal/http/handler"
)

func BriefRouter(rg *gin.RouterGroup, h *handler.BriefHandler) {
	rg.POST("/briefs", h.Submit)
	rg.GET("/runs/:id", h.GetRun)
}
