package domain

import "time"

// SessionStatus is the lifecycle state of a session. ACTIVE is the initial
// state; ENDED and EXPIRED are terminal and the transitions are one-way.
type SessionStatus string

const (
	SessionActive  SessionStatus = "ACTIVE"
	SessionEnded   SessionStatus = "ENDED"
	SessionExpired SessionStatus = "EXPIRED"
)

// Session aggregates the events of one visit. PageViews and Events only grow
// while the session is ACTIVE; Duration is fixed once the session ends.
type Session struct {
	SessionID    string        `bson:"session_id" json:"sessionId"`
	UserID       string        `bson:"user_id" json:"userId"`
	Status       SessionStatus `bson:"status" json:"status"`
	StartTime    time.Time     `bson:"start_time" json:"startTime"`
	EndTime      *time.Time    `bson:"end_time,omitempty" json:"endTime,omitempty"`
	DurationMs   int64         `bson:"duration_ms,omitempty" json:"durationMs,omitempty"`
	PageViews    int64         `bson:"page_views" json:"pageViews"`
	Events       int64         `bson:"events" json:"events"`
	EntryPage    string        `bson:"entry_page,omitempty" json:"entryPage,omitempty"`
	ExitPage     string        `bson:"exit_page,omitempty" json:"exitPage,omitempty"`
	LastActivity time.Time     `bson:"last_activity" json:"lastActivity"`
	Metadata     Metadata      `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

// SessionDelta is the counter mutation one event applies to its session.
// Deltas are commutative, so concurrent events for the same session converge
// to the same totals regardless of interleaving.
type SessionDelta struct {
	UserID    string
	Events    int64
	PageViews int64
	ExitPage  string
	EntryPage string
	Metadata  Metadata
	Seen      time.Time
}
