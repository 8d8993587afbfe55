package controller

import (
	"pulse-analytics/internal/middleware"
	"pulse-analytics/internal/usecase"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, h *usecase.Handlers) {
	r.Use(middleware.RequestLogger())

	// Prefix all API routes with /api
	api := r.Group("/api")
	{
		api.POST("/events", h.TrackEventHandler)
		api.POST("/events/batch", h.TrackBatchHandler)
		api.DELETE("/events", h.RetentionHandler)

		api.POST("/sessions/:id/end", h.EndSessionHandler)

		api.GET("/users/:id", h.GetUserHandler)
		api.POST("/users/:id/segments", h.SegmentUserHandler)
		api.POST("/users/:id/tags", h.TagUserHandler)

		stats := api.Group("/analytics")
		{
			stats.GET("/overview", h.OverviewHandler)
			stats.GET("/dashboard", h.DashboardHandler)
			stats.GET("/insights", h.InsightsHandler)
			stats.GET("/summary", h.SummaryHandler)
		}
	}
}
