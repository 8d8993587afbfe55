package ingest

import (
	"context"
	"sync"
	"time"

	"pulse-analytics/internal/domain"

	"github.com/rs/zerolog/log"
)

const counterUpdateTimeout = 5 * time.Second

// Input is an event payload as submitted by a client.
type Input struct {
	UserID     string            `json:"userId"`
	SessionID  string            `json:"sessionId"`
	EventType  domain.EventType  `json:"eventType"`
	Timestamp  time.Time         `json:"timestamp"`
	Properties domain.Properties `json:"properties"`
	Metadata   domain.Metadata   `json:"metadata"`
	PageURL    string            `json:"pageUrl"`
	Referrer   string            `json:"referrer"`
	DurationMs int64             `json:"durationMs"`
}

// BatchResult reports how many records of a batch were persisted.
type BatchResult struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// Service ingests events and rolls their counter deltas up into the user and
// session records.
type Service interface {
	// Ingest validates and persists one event, then applies user and session
	// counter deltas in the background. The caller's success does not depend
	// on the counter updates.
	Ingest(ctx context.Context, in Input) (*domain.Event, error)

	// IngestBatch persists a batch in one bulk write, tolerating malformed
	// individual records, then applies one aggregated counter delta per
	// distinct user and per distinct session.
	IngestBatch(ctx context.Context, inputs []Input) (BatchResult, error)

	// DeleteOlderThan removes events older than cutoff (retention sweep).
	// Counters are not refreshed; orphaned totals are acceptable.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// Wait blocks until all dispatched counter updates have settled. Called
	// on shutdown and by tests.
	Wait()
}

type service struct {
	events   domain.EventRepository
	sessions domain.SessionRepository
	users    domain.UserRepository
	clock    domain.Clock
	ids      domain.IDGenerator

	wg sync.WaitGroup
}

// NewService creates the ingestion service.
func NewService(events domain.EventRepository, sessions domain.SessionRepository, users domain.UserRepository, clock domain.Clock, ids domain.IDGenerator) Service {
	return &service{
		events:   events,
		sessions: sessions,
		users:    users,
		clock:    clock,
		ids:      ids,
	}
}

func validate(in Input) error {
	if in.UserID == "" {
		return domain.NewValidationError("userId", "required")
	}
	if in.SessionID == "" {
		return domain.NewValidationError("sessionId", "required")
	}
	if !in.EventType.IsValid() {
		return domain.NewValidationError("eventType", "unknown event type "+string(in.EventType))
	}
	return nil
}

func (s *service) build(in Input) *domain.Event {
	ts := in.Timestamp
	if ts.IsZero() {
		ts = s.clock.Now()
	}
	return &domain.Event{
		EventID:    s.ids.NewID(),
		UserID:     in.UserID,
		SessionID:  in.SessionID,
		EventType:  in.EventType,
		Timestamp:  ts,
		Properties: in.Properties,
		Metadata:   in.Metadata,
		PageURL:    in.PageURL,
		Referrer:   in.Referrer,
		DurationMs: in.DurationMs,
	}
}

func (s *service) Ingest(ctx context.Context, in Input) (*domain.Event, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	event := s.build(in)
	if err := s.events.Insert(ctx, event); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	s.dispatch(map[string]domain.UserDelta{event.UserID: userDelta(event, now)},
		map[string]domain.SessionDelta{event.SessionID: sessionDelta(event, now)})

	return event, nil
}

func (s *service) IngestBatch(ctx context.Context, inputs []Input) (BatchResult, error) {
	if len(inputs) == 0 {
		return BatchResult{}, domain.NewValidationError("events", "batch cannot be empty")
	}

	events := make([]*domain.Event, 0, len(inputs))
	for _, in := range inputs {
		if err := validate(in); err != nil {
			log.Warn().Err(err).Msg("skipping malformed batch record")
			continue
		}
		events = append(events, s.build(in))
	}

	var persisted int64
	if len(events) > 0 {
		var err error
		persisted, err = s.events.InsertBatch(ctx, events)
		if err != nil {
			return BatchResult{Failed: len(inputs)}, err
		}
	}

	now := s.clock.Now()
	userDeltas := make(map[string]domain.UserDelta)
	sessionDeltas := make(map[string]domain.SessionDelta)
	for _, event := range events {
		userDeltas[event.UserID] = mergeUserDelta(userDeltas[event.UserID], userDelta(event, now))
		sessionDeltas[event.SessionID] = mergeSessionDelta(sessionDeltas[event.SessionID], sessionDelta(event, now))
	}
	s.dispatch(userDeltas, sessionDeltas)

	return BatchResult{
		Success: int(persisted),
		Failed:  len(inputs) - int(persisted),
	}, nil
}

func (s *service) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	deleted, err := s.events.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		log.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("retention sweep removed events")
	}
	return deleted, nil
}

func (s *service) Wait() {
	s.wg.Wait()
}

// dispatch applies counter deltas on a background goroutine. Failures are
// logged and swallowed: events are authoritative, counters are derived and
// self-healing on the next full aggregation.
func (s *service) dispatch(userDeltas map[string]domain.UserDelta, sessionDeltas map[string]domain.SessionDelta) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), counterUpdateTimeout)
		defer cancel()

		for userID, delta := range userDeltas {
			if err := s.users.ApplyDelta(ctx, userID, delta); err != nil {
				log.Error().Err(err).Str("user_id", userID).Msg("failed to apply user counter delta")
			}
		}
		for sessionID, delta := range sessionDeltas {
			if err := s.sessions.ApplyDelta(ctx, sessionID, delta); err != nil {
				log.Error().Err(err).Str("session_id", sessionID).Msg("failed to apply session counter delta")
			}
		}
	}()
}

// userDelta derives the visitor counter mutation for one event. Purchase is
// the only type with type-specific accounting.
func userDelta(event *domain.Event, now time.Time) domain.UserDelta {
	delta := domain.UserDelta{Events: 1, Seen: now}
	switch event.EventType {
	case domain.EventPurchase:
		delta.Purchases = 1
		delta.Revenue = event.Properties.Amount()
	case domain.EventSessionStart:
		delta.Sessions = 1
	}
	return delta
}

// sessionDelta derives the session counter mutation for one event.
func sessionDelta(event *domain.Event, now time.Time) domain.SessionDelta {
	delta := domain.SessionDelta{
		UserID: event.UserID,
		Events: 1,
		Seen:   now,
	}
	if event.EventType == domain.EventPageView {
		delta.PageViews = 1
		delta.ExitPage = event.PageURL
	}
	if event.EventType == domain.EventSessionStart {
		delta.EntryPage = event.PageURL
		delta.Metadata = event.Metadata
	}
	return delta
}

func mergeUserDelta(a, b domain.UserDelta) domain.UserDelta {
	return domain.UserDelta{
		Events:    a.Events + b.Events,
		Sessions:  a.Sessions + b.Sessions,
		Purchases: a.Purchases + b.Purchases,
		Revenue:   a.Revenue + b.Revenue,
		Seen:      b.Seen,
	}
}

func mergeSessionDelta(a, b domain.SessionDelta) domain.SessionDelta {
	merged := domain.SessionDelta{
		UserID:    b.UserID,
		Events:    a.Events + b.Events,
		PageViews: a.PageViews + b.PageViews,
		ExitPage:  a.ExitPage,
		EntryPage: a.EntryPage,
		Metadata:  a.Metadata,
		Seen:      b.Seen,
	}
	if b.ExitPage != "" {
		merged.ExitPage = b.ExitPage
	}
	if b.EntryPage != "" {
		merged.EntryPage = b.EntryPage
	}
	if merged.Metadata == (domain.Metadata{}) {
		merged.Metadata = b.Metadata
	}
	return merged
}
