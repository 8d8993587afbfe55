package usecase

import (
	"net/http"

	"pulse-analytics/internal/domain"

	"github.com/gin-gonic/gin"
)

type endSessionRequest struct {
	ExitPage string `json:"exitPage"`
}

// EndSessionHandler ends an active session. Ending a terminal session is a
// no-op that returns the existing record.
func (h *Handlers) EndSessionHandler(c *gin.Context) {
	sessionID := c.Param("id")

	var req endSessionRequest
	_ = c.ShouldBindJSON(&req)

	ended, err := h.sessions.End(c.Request.Context(), sessionID, req.ExitPage)
	if err != nil {
		if domain.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to end session", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, ended)
}
