package usecase

import (
	"time"

	"pulse-analytics/internal/domain"
	"pulse-analytics/internal/service/analytics"
	"pulse-analytics/internal/service/ingest"
	"pulse-analytics/internal/service/session"

	"github.com/gin-gonic/gin"
)

// Handlers holds the gin handlers over the core services.
type Handlers struct {
	ingest    ingest.Service
	sessions  session.Service
	analytics analytics.Service
	users     domain.UserRepository
}

// NewHandlers creates the handler set with dependency injection
func NewHandlers(ingestSvc ingest.Service, sessionSvc session.Service, analyticsSvc analytics.Service, users domain.UserRepository) *Handlers {
	return &Handlers{
		ingest:    ingestSvc,
		sessions:  sessionSvc,
		analytics: analyticsSvc,
		users:     users,
	}
}

// window parses start/end query params (RFC 3339), defaulting to the last
// seven days when absent.
func window(c *gin.Context) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	start := now.AddDate(0, 0, -7)
	end := now

	if raw := c.Query("start"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = parsed
	}
	if raw := c.Query("end"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = parsed
	}
	return start, end, nil
}
