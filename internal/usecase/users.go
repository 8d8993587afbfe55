package usecase

import (
	"net/http"

	"pulse-analytics/internal/domain"

	"github.com/gin-gonic/gin"
)

// GetUserHandler returns a visitor record by id.
func (h *Handlers) GetUserHandler(c *gin.Context) {
	user, err := h.users.FindByVisitorID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if domain.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch user", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, user)
}

type segmentRequest struct {
	Segment string `json:"segment" binding:"required"`
}

// SegmentUserHandler adds a visitor to a segment (set semantics).
func (h *Handlers) SegmentUserHandler(c *gin.Context) {
	var req segmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "segment is required"})
		return
	}

	if err := h.users.AddToSegment(c.Request.Context(), c.Param("id"), req.Segment); err != nil {
		if domain.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add segment", "details": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

type tagRequest struct {
	Tag string `json:"tag" binding:"required"`
}

// TagUserHandler attaches a tag to a visitor (set semantics).
func (h *Handlers) TagUserHandler(c *gin.Context) {
	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tag is required"})
		return
	}

	if err := h.users.Tag(c.Request.Context(), c.Param("id"), req.Tag); err != nil {
		if domain.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add tag", "details": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}
