// Package memory provides in-memory implementations of the record store
// interfaces with the same semantics as the MongoDB implementations. They
// back the service tests and the local development mode.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"pulse-analytics/internal/domain"
)

// EventRepository is a mutex-guarded, slice-backed event store.
type EventRepository struct {
	mu     sync.RWMutex
	events []domain.Event
}

// NewEventRepository creates an empty in-memory event store.
func NewEventRepository() *EventRepository {
	return &EventRepository{}
}

func (r *EventRepository) Insert(ctx context.Context, event *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return nil
}

func (r *EventRepository) InsertBatch(ctx context.Context, events []*domain.Event) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var persisted int64
	for _, event := range events {
		if event == nil {
			continue
		}
		r.events = append(r.events, *event)
		persisted++
	}
	return persisted, nil
}

func (r *EventRepository) Stats(ctx context.Context, start, end time.Time) (*domain.EventStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &domain.EventStats{}
	users := make(map[string]struct{})
	for _, e := range r.events {
		if !inWindow(e.Timestamp, start, end) {
			continue
		}
		stats.TotalEvents++
		users[e.UserID] = struct{}{}
		if e.EventType == domain.EventPageView {
			stats.TotalPageViews++
		}
	}
	stats.DistinctUsers = int64(len(users))
	return stats, nil
}

func (r *EventRepository) PurchaseStats(ctx context.Context, start, end time.Time) (*domain.PurchaseStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &domain.PurchaseStats{}
	users := make(map[string]struct{})
	for _, e := range r.events {
		if e.EventType != domain.EventPurchase || !inWindow(e.Timestamp, start, end) {
			continue
		}
		stats.TotalPurchases++
		stats.TotalRevenue += e.Properties.Amount()
		users[e.UserID] = struct{}{}
	}
	stats.PurchasingUsers = int64(len(users))
	return stats, nil
}

func (r *EventRepository) TopPages(ctx context.Context, start, end time.Time, limit int64) ([]domain.PageStat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	views := make(map[string]int64)
	users := make(map[string]map[string]struct{})
	for _, e := range r.events {
		if e.EventType != domain.EventPageView || e.PageURL == "" || !inWindow(e.Timestamp, start, end) {
			continue
		}
		views[e.PageURL]++
		if users[e.PageURL] == nil {
			users[e.PageURL] = make(map[string]struct{})
		}
		users[e.PageURL][e.UserID] = struct{}{}
	}

	pages := make([]domain.PageStat, 0, len(views))
	for url, count := range views {
		pages = append(pages, domain.PageStat{
			PageURL:       url,
			Views:         count,
			DistinctUsers: int64(len(users[url])),
		})
	}
	sort.Slice(pages, func(i, j int) bool {
		if pages[i].Views != pages[j].Views {
			return pages[i].Views > pages[j].Views
		}
		return pages[i].PageURL < pages[j].PageURL
	})
	if int64(len(pages)) > limit {
		pages = pages[:limit]
	}
	return pages, nil
}

func (r *EventRepository) TypeCounts(ctx context.Context, start, end time.Time) ([]domain.EventTypeStat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[domain.EventType]int64)
	for _, e := range r.events {
		if inWindow(e.Timestamp, start, end) {
			counts[e.EventType]++
		}
	}

	stats := make([]domain.EventTypeStat, 0, len(counts))
	for t, c := range counts {
		stats = append(stats, domain.EventTypeStat{EventType: t, Count: c})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].EventType < stats[j].EventType
	})
	return stats, nil
}

func (r *EventRepository) DailyActivity(ctx context.Context, start, end time.Time) ([]domain.DailyActivityStat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type dayAgg struct {
		users    map[string]struct{}
		sessions map[string]struct{}
		events   int64
	}
	days := make(map[string]*dayAgg)
	for _, e := range r.events {
		if !inWindow(e.Timestamp, start, end) {
			continue
		}
		key := e.Timestamp.UTC().Format("2006-01-02")
		agg := days[key]
		if agg == nil {
			agg = &dayAgg{users: make(map[string]struct{}), sessions: make(map[string]struct{})}
			days[key] = agg
		}
		agg.users[e.UserID] = struct{}{}
		agg.sessions[e.SessionID] = struct{}{}
		agg.events++
	}

	stats := make([]domain.DailyActivityStat, 0, len(days))
	for date, agg := range days {
		stats = append(stats, domain.DailyActivityStat{
			Date:          date,
			DistinctUsers: int64(len(agg.users)),
			Sessions:      int64(len(agg.sessions)),
			Events:        agg.events,
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Date < stats[j].Date })
	return stats, nil
}

func (r *EventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.events[:0]
	var deleted int64
	for _, e := range r.events {
		if e.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	r.events = kept
	return deleted, nil
}

// Count returns the number of stored events. Test helper.
func (r *EventRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events)
}

func inWindow(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
