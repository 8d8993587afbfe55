package domain

import "time"

// User is the mutable per-visitor aggregate. Counters are a denormalized
// cache over the event log: totalEvents >= totalPurchases >= 0 and
// totalRevenue >= 0 hold as long as only ingestion mutates them.
type User struct {
	VisitorID      string                 `bson:"visitor_id" json:"visitorId"`
	Email          string                 `bson:"email,omitempty" json:"email,omitempty"`
	FirstName      string                 `bson:"first_name,omitempty" json:"firstName,omitempty"`
	LastName       string                 `bson:"last_name,omitempty" json:"lastName,omitempty"`
	Attributes     map[string]interface{} `bson:"attributes,omitempty" json:"attributes,omitempty"`
	FirstSeen      time.Time              `bson:"first_seen" json:"firstSeen"`
	LastSeen       time.Time              `bson:"last_seen" json:"lastSeen"`
	TotalSessions  int64                  `bson:"total_sessions" json:"totalSessions"`
	TotalEvents    int64                  `bson:"total_events" json:"totalEvents"`
	TotalPurchases int64                  `bson:"total_purchases" json:"totalPurchases"`
	TotalRevenue   float64                `bson:"total_revenue" json:"totalRevenue"`
	Tags           []string               `bson:"tags,omitempty" json:"tags,omitempty"`
	Segments       []string               `bson:"segments,omitempty" json:"segments,omitempty"`
}

// UserDelta is the counter mutation ingestion applies to a visitor record.
type UserDelta struct {
	Events    int64
	Sessions  int64
	Purchases int64
	Revenue   float64
	Seen      time.Time
}
