package domain

import "time"

// EventType is the closed set of interaction kinds the platform accepts.
type EventType string

const (
	EventSessionStart   EventType = "session-start"
	EventSessionEnd     EventType = "session-end"
	EventPageView       EventType = "page-view"
	EventProductView    EventType = "product-view"
	EventAddToCart      EventType = "add-to-cart"
	EventRemoveFromCart EventType = "remove-from-cart"
	EventPurchase       EventType = "purchase"
	EventSearch         EventType = "search"
	EventClick          EventType = "click"
	EventScroll         EventType = "scroll"
	EventFormSubmit     EventType = "form-submit"
)

var validEventTypes = map[EventType]struct{}{
	EventSessionStart:   {},
	EventSessionEnd:     {},
	EventPageView:       {},
	EventProductView:    {},
	EventAddToCart:      {},
	EventRemoveFromCart: {},
	EventPurchase:       {},
	EventSearch:         {},
	EventClick:          {},
	EventScroll:         {},
	EventFormSubmit:     {},
}

// IsValid reports whether t is a member of the closed enum.
func (t EventType) IsValid() bool {
	_, ok := validEventTypes[t]
	return ok
}

// Properties is an open key-value payload attached to an event. Values are
// restricted to strings, numbers, booleans and nested maps of the same.
type Properties map[string]interface{}

// Amount extracts the numeric "amount" property of a purchase event.
// A missing or non-numeric amount is treated as zero.
func (p Properties) Amount() float64 {
	if p == nil {
		return 0
	}
	switch v := p["amount"].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// Metadata carries device, browser and geo context captured at ingestion.
type Metadata struct {
	Device  string `bson:"device,omitempty" json:"device,omitempty"`
	Browser string `bson:"browser,omitempty" json:"browser,omitempty"`
	OS      string `bson:"os,omitempty" json:"os,omitempty"`
	Country string `bson:"country,omitempty" json:"country,omitempty"`
	City    string `bson:"city,omitempty" json:"city,omitempty"`
}

// Event is a single immutable interaction fact. Events are created once by
// ingestion and never mutated; the event log is the source of truth from
// which all counters derive.
type Event struct {
	EventID    string     `bson:"event_id" json:"eventId"`
	UserID     string     `bson:"user_id" json:"userId"`
	SessionID  string     `bson:"session_id" json:"sessionId"`
	EventType  EventType  `bson:"event_type" json:"eventType"`
	Timestamp  time.Time  `bson:"timestamp" json:"timestamp"`
	Properties Properties `bson:"properties,omitempty" json:"properties,omitempty"`
	Metadata   Metadata   `bson:"metadata,omitempty" json:"metadata,omitempty"`
	PageURL    string     `bson:"page_url,omitempty" json:"pageUrl,omitempty"`
	Referrer   string     `bson:"referrer,omitempty" json:"referrer,omitempty"`
	DurationMs int64      `bson:"duration_ms,omitempty" json:"durationMs,omitempty"`
}
