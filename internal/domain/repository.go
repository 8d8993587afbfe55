package domain

import (
	"context"
	"time"
)

// EventRepository is the append-mostly store of immutable event records.
type EventRepository interface {
	// Insert persists a single event.
	Insert(ctx context.Context, event *Event) error

	// InsertBatch persists events in one unordered bulk write. Partial
	// failures are tolerated; the number of records actually persisted is
	// returned alongside any store error for a total failure.
	InsertBatch(ctx context.Context, events []*Event) (int64, error)

	// Stats runs one grouped pass over events in [start, end].
	Stats(ctx context.Context, start, end time.Time) (*EventStats, error)

	// PurchaseStats runs one grouped pass over purchase events in [start, end].
	PurchaseStats(ctx context.Context, start, end time.Time) (*PurchaseStats, error)

	// TopPages groups page-view events by page URL, descending by views.
	TopPages(ctx context.Context, start, end time.Time, limit int64) ([]PageStat, error)

	// TypeCounts groups all events in the window by type, descending by count.
	TypeCounts(ctx context.Context, start, end time.Time) ([]EventTypeStat, error)

	// DailyActivity groups events by UTC calendar day, ascending by date.
	DailyActivity(ctx context.Context, start, end time.Time) ([]DailyActivityStat, error)

	// DeleteOlderThan removes events with timestamp < cutoff and returns the
	// count deleted.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// SessionRepository is the mutable per-session record store.
type SessionRepository interface {
	// ApplyDelta upserts the session record and applies counter increments
	// atomically. A record is created if the session is unseen.
	ApplyDelta(ctx context.Context, sessionID string, delta SessionDelta) error

	// FindByID returns the session or a NotFoundError.
	FindByID(ctx context.Context, sessionID string) (*Session, error)

	// End transitions an ACTIVE session to ENDED, recording end time,
	// duration and exit page. Returns false when the session was not ACTIVE.
	End(ctx context.Context, sessionID string, endTime time.Time, durationMs int64, exitPage string) (bool, error)

	// ExpireInactive transitions every ACTIVE session whose last activity is
	// older than cutoff to EXPIRED and returns the count.
	ExpireInactive(ctx context.Context, cutoff time.Time) (int64, error)

	// Stats runs one grouped pass over sessions started in [start, end].
	Stats(ctx context.Context, start, end time.Time) (*SessionStats, error)

	// CountryBreakdown groups sessions by country, descending by count.
	CountryBreakdown(ctx context.Context, start, end time.Time, limit int64) ([]CountryStat, error)

	// DeviceBreakdown groups sessions by device, descending by count.
	DeviceBreakdown(ctx context.Context, start, end time.Time) ([]DeviceStat, error)
}

// UserRepository is the mutable per-visitor record store.
type UserRepository interface {
	// ApplyDelta upserts the visitor record and applies counter increments
	// atomically. A record is created if the visitor is unseen.
	ApplyDelta(ctx context.Context, visitorID string, delta UserDelta) error

	// FindByVisitorID returns the user or a NotFoundError.
	FindByVisitorID(ctx context.Context, visitorID string) (*User, error)

	// CountActiveBetween counts users with lastSeen in [start, end].
	CountActiveBetween(ctx context.Context, start, end time.Time) (int64, error)

	// SegmentDistribution counts membership per segment across users with a
	// non-empty segments set.
	SegmentDistribution(ctx context.Context) ([]SegmentCount, error)

	// TopByEvents returns users sorted descending by totalEvents.
	TopByEvents(ctx context.Context, limit int64) ([]TopUser, error)

	// CountNewBetween counts users with firstSeen in [start, end].
	CountNewBetween(ctx context.Context, start, end time.Time) (int64, error)

	// CountReturningBetween counts users with firstSeen before start and
	// lastSeen in [start, end]. Disjoint from CountNewBetween by construction.
	CountReturningBetween(ctx context.Context, start, end time.Time) (int64, error)

	// AddToSegment adds the visitor to a segment with set semantics.
	AddToSegment(ctx context.Context, visitorID, segment string) error

	// Tag attaches a tag to the visitor with set semantics.
	Tag(ctx context.Context, visitorID, tag string) error
}
