package session

import (
	"context"
	"time"

	"pulse-analytics/internal/domain"

	"github.com/rs/zerolog/log"
)

// Service manages the session lifecycle: explicit ends and the periodic
// inactivity sweep. Both transitions are one-way.
type Service interface {
	// End transitions an ACTIVE session to ENDED. Ending an already
	// ended or expired session is a no-op returning the record unchanged.
	End(ctx context.Context, sessionID, exitPage string) (*domain.Session, error)

	// ExpireInactive ends every ACTIVE session whose last activity is older
	// than the configured inactivity threshold and returns the count.
	ExpireInactive(ctx context.Context) (int64, error)
}

type service struct {
	sessions   domain.SessionRepository
	clock      domain.Clock
	inactivity time.Duration
}

// NewService creates the session lifecycle service.
func NewService(sessions domain.SessionRepository, clock domain.Clock, inactivity time.Duration) Service {
	return &service{
		sessions:   sessions,
		clock:      clock,
		inactivity: inactivity,
	}
}

func (s *service) End(ctx context.Context, sessionID, exitPage string) (*domain.Session, error) {
	current, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if current.Status != domain.SessionActive {
		return current, nil
	}

	now := s.clock.Now()
	durationMs := now.Sub(current.StartTime).Milliseconds()

	ended, err := s.sessions.End(ctx, sessionID, now, durationMs, exitPage)
	if err != nil {
		return nil, err
	}
	if !ended {
		// Lost the race to a concurrent end or the expiry sweep; the
		// record is terminal either way.
		return s.sessions.FindByID(ctx, sessionID)
	}

	return s.sessions.FindByID(ctx, sessionID)
}

func (s *service) ExpireInactive(ctx context.Context) (int64, error) {
	cutoff := s.clock.Now().Add(-s.inactivity)

	expired, err := s.sessions.ExpireInactive(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		log.Info().Int64("expired", expired).Time("cutoff", cutoff).Msg("expired inactive sessions")
	}
	return expired, nil
}
