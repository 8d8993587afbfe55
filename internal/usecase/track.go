package usecase

import (
	"net/http"
	"time"

	"pulse-analytics/internal/domain"
	"pulse-analytics/internal/service/ingest"

	"github.com/gin-gonic/gin"
)

// TrackEventHandler ingests a single event.
func (h *Handlers) TrackEventHandler(c *gin.Context) {
	var in ingest.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload", "details": err.Error()})
		return
	}

	event, err := h.ingest.Ingest(c.Request.Context(), in)
	if err != nil {
		if domain.IsValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to ingest event", "details": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, event)
}

// TrackBatchHandler ingests a batch of events in one bulk write.
func (h *Handlers) TrackBatchHandler(c *gin.Context) {
	var inputs []ingest.Input
	if err := c.ShouldBindJSON(&inputs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload", "details": err.Error()})
		return
	}

	result, err := h.ingest.IngestBatch(c.Request.Context(), inputs)
	if err != nil {
		if domain.IsValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to ingest batch", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// RetentionHandler deletes events older than the "before" cutoff.
func (h *Handlers) RetentionHandler(c *gin.Context) {
	raw := c.Query("before")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "before query parameter is required"})
		return
	}
	cutoff, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid before timestamp", "details": err.Error()})
		return
	}

	deleted, err := h.ingest.DeleteOlderThan(c.Request.Context(), cutoff)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete events", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
