package router

import (
	"github.com/gin-gonic/gin"

	"scribe.app/engine/internal/http/handler"
	"scribe.app/engine/internal/http/middleware"
	"scribe.app/engine/internal/service"
)

type RouterConfig struct {
	TraceHeaderName string
	AdminAPIKey     string
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		briefHandler := handler.NewBriefHandler(services.Briefs(), cfg.TraceHeaderName)
		BriefRouter(v1, briefHandler)

		templateHandler := handler.NewTemplateHandler(services.Templates())
		templates := v1.Group("/templates")
		templates.Use(middleware.RequireAdminAPIKey(cfg.AdminAPIKey))
		TemplateRouter(templates, templateHandler)
	}
}
