package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"pulse-analytics/internal/domain"
)

// UserRepository is a mutex-guarded, map-backed visitor store.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

// NewUserRepository creates an empty in-memory user store.
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*domain.User)}
}

func (r *UserRepository) ApplyDelta(ctx context.Context, visitorID string, delta domain.UserDelta) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[visitorID]
	if !ok {
		u = &domain.User{
			VisitorID: visitorID,
			FirstSeen: delta.Seen,
		}
		r.users[visitorID] = u
	}

	u.TotalEvents += delta.Events
	u.TotalSessions += delta.Sessions
	u.TotalPurchases += delta.Purchases
	u.TotalRevenue += delta.Revenue
	u.LastSeen = delta.Seen
	return nil
}

func (r *UserRepository) FindByVisitorID(ctx context.Context, visitorID string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[visitorID]
	if !ok {
		return nil, domain.NewNotFoundError("user", visitorID)
	}
	copied := *u
	return &copied, nil
}

func (r *UserRepository) CountActiveBetween(ctx context.Context, start, end time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, u := range r.users {
		if inWindow(u.LastSeen, start, end) {
			count++
		}
	}
	return count, nil
}

func (r *UserRepository) SegmentDistribution(ctx context.Context) ([]domain.SegmentCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int64)
	for _, u := range r.users {
		for _, segment := range u.Segments {
			counts[segment]++
		}
	}

	segments := make([]domain.SegmentCount, 0, len(counts))
	for segment, users := range counts {
		segments = append(segments, domain.SegmentCount{Segment: segment, Users: users})
	}
	sort.Slice(segments, func(i, j int) bool {
		if segments[i].Users != segments[j].Users {
			return segments[i].Users > segments[j].Users
		}
		return segments[i].Segment < segments[j].Segment
	})
	return segments, nil
}

func (r *UserRepository) TopByEvents(ctx context.Context, limit int64) ([]domain.TopUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]domain.TopUser, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, domain.TopUser{
			VisitorID:      u.VisitorID,
			Email:          u.Email,
			TotalEvents:    u.TotalEvents,
			TotalPurchases: u.TotalPurchases,
			TotalRevenue:   u.TotalRevenue,
		})
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].TotalEvents != users[j].TotalEvents {
			return users[i].TotalEvents > users[j].TotalEvents
		}
		return users[i].VisitorID < users[j].VisitorID
	})
	if int64(len(users)) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (r *UserRepository) CountNewBetween(ctx context.Context, start, end time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, u := range r.users {
		if inWindow(u.FirstSeen, start, end) {
			count++
		}
	}
	return count, nil
}

func (r *UserRepository) CountReturningBetween(ctx context.Context, start, end time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, u := range r.users {
		if u.FirstSeen.Before(start) && inWindow(u.LastSeen, start, end) {
			count++
		}
	}
	return count, nil
}

func (r *UserRepository) AddToSegment(ctx context.Context, visitorID, segment string) error {
	return r.addToSet(visitorID, segment, func(u *domain.User) *[]string { return &u.Segments })
}

func (r *UserRepository) Tag(ctx context.Context, visitorID, tag string) error {
	return r.addToSet(visitorID, tag, func(u *domain.User) *[]string { return &u.Tags })
}

func (r *UserRepository) addToSet(visitorID, value string, field func(*domain.User) *[]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[visitorID]
	if !ok {
		return domain.NewNotFoundError("user", visitorID)
	}
	set := field(u)
	for _, existing := range *set {
		if existing == value {
			return nil
		}
	}
	*set = append(*set, value)
	return nil
}
