package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"pulse-analytics/internal/domain"
)

// SessionRepository is a mutex-guarded, map-backed session store.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewSessionRepository creates an empty in-memory session store.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: make(map[string]*domain.Session)}
}

func (r *SessionRepository) ApplyDelta(ctx context.Context, sessionID string, delta domain.SessionDelta) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		s = &domain.Session{
			SessionID: sessionID,
			UserID:    delta.UserID,
			Status:    domain.SessionActive,
			StartTime: delta.Seen,
			EntryPage: delta.EntryPage,
			Metadata:  delta.Metadata,
		}
		r.sessions[sessionID] = s
	}

	s.Events += delta.Events
	s.PageViews += delta.PageViews
	s.LastActivity = delta.Seen
	if delta.ExitPage != "" {
		s.ExitPage = delta.ExitPage
	}
	return nil
}

func (r *SessionRepository) FindByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, domain.NewNotFoundError("session", sessionID)
	}
	copied := *s
	return &copied, nil
}

func (r *SessionRepository) End(ctx context.Context, sessionID string, endTime time.Time, durationMs int64, exitPage string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok || s.Status != domain.SessionActive {
		return false, nil
	}

	s.Status = domain.SessionEnded
	s.EndTime = &endTime
	s.DurationMs = durationMs
	if exitPage != "" {
		s.ExitPage = exitPage
	}
	return true, nil
}

func (r *SessionRepository) ExpireInactive(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired int64
	for _, s := range r.sessions {
		if s.Status != domain.SessionActive || !s.LastActivity.Before(cutoff) {
			continue
		}
		endTime := s.LastActivity
		s.Status = domain.SessionExpired
		s.EndTime = &endTime
		s.DurationMs = endTime.Sub(s.StartTime).Milliseconds()
		expired++
	}
	return expired, nil
}

func (r *SessionRepository) Stats(ctx context.Context, start, end time.Time) (*domain.SessionStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &domain.SessionStats{}
	var durationSum float64
	var ended int64
	for _, s := range r.sessions {
		if !inWindow(s.StartTime, start, end) {
			continue
		}
		stats.TotalSessions++
		if s.PageViews <= 1 {
			stats.Bounced++
		}
		if s.EndTime != nil {
			durationSum += float64(s.DurationMs)
			ended++
		}
	}
	if ended > 0 {
		stats.AvgDurationMs = durationSum / float64(ended)
	}
	return stats, nil
}

func (r *SessionRepository) CountryBreakdown(ctx context.Context, start, end time.Time, limit int64) ([]domain.CountryStat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int64)
	users := make(map[string]map[string]struct{})
	for _, s := range r.sessions {
		if !inWindow(s.StartTime, start, end) {
			continue
		}
		country := s.Metadata.Country
		if country == "" {
			country = "Unknown"
		}
		counts[country]++
		if users[country] == nil {
			users[country] = make(map[string]struct{})
		}
		users[country][s.UserID] = struct{}{}
	}

	countries := make([]domain.CountryStat, 0, len(counts))
	for country, count := range counts {
		countries = append(countries, domain.CountryStat{
			Country:       country,
			Sessions:      count,
			DistinctUsers: int64(len(users[country])),
		})
	}
	sort.Slice(countries, func(i, j int) bool {
		if countries[i].Sessions != countries[j].Sessions {
			return countries[i].Sessions > countries[j].Sessions
		}
		return countries[i].Country < countries[j].Country
	})
	if int64(len(countries)) > limit {
		countries = countries[:limit]
	}
	return countries, nil
}

func (r *SessionRepository) DeviceBreakdown(ctx context.Context, start, end time.Time) ([]domain.DeviceStat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int64)
	for _, s := range r.sessions {
		if !inWindow(s.StartTime, start, end) {
			continue
		}
		device := s.Metadata.Device
		if device == "" {
			device = "Unknown"
		}
		counts[device]++
	}

	devices := make([]domain.DeviceStat, 0, len(counts))
	for device, count := range counts {
		devices = append(devices, domain.DeviceStat{Device: device, Count: count})
	}
	sort.Slice(devices, func(i, j int) bool {
		if devices[i].Count != devices[j].Count {
			return devices[i].Count > devices[j].Count
		}
		return devices[i].Device < devices[j].Device
	})
	return devices, nil
}
