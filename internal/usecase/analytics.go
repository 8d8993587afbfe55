package usecase

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// OverviewHandler serves the overview metric set for a window.
func (h *Handlers) OverviewHandler(c *gin.Context) {
	start, end, err := window(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid time window", "details": err.Error()})
		return
	}

	overview, err := h.analytics.ComputeOverview(c.Request.Context(), start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute overview", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, overview)
}

// DashboardHandler serves the full composed dashboard for a window.
func (h *Handlers) DashboardHandler(c *gin.Context) {
	start, end, err := window(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid time window", "details": err.Error()})
		return
	}

	dashboard, err := h.analytics.ComputeDashboard(c.Request.Context(), start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute dashboard", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dashboard)
}

// InsightsHandler serves user-centric metrics for a window.
func (h *Handlers) InsightsHandler(c *gin.Context) {
	start, end, err := window(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid time window", "details": err.Error()})
		return
	}

	insights, err := h.analytics.ComputeUserInsights(c.Request.Context(), start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute insights", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, insights)
}

// SummaryHandler serves the compact all-time totals projection.
func (h *Handlers) SummaryHandler(c *gin.Context) {
	summary, err := h.analytics.GetAnalyticsSummary(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch summary", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}
