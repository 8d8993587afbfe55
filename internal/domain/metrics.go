package domain

import "time"

// OverviewMetrics is the core dashboard summary for one time window.
//
// TotalUsers counts distinct users over events in the window; ActiveUsers
// counts users whose lastSeen falls inside the window. These are different
// definitions and are deliberately kept as separate fields.
type OverviewMetrics struct {
	TotalEvents        int64   `json:"totalEvents"`
	TotalUsers         int64   `json:"totalUsers"`
	TotalPageViews     int64   `json:"totalPageViews"`
	TotalSessions      int64   `json:"totalSessions"`
	AvgSessionDuration float64 `json:"avgSessionDuration"`
	BounceRate         float64 `json:"bounceRate"`
	ActiveUsers        int64   `json:"activeUsers"`
	TotalPurchases     int64   `json:"totalPurchases"`
	TotalRevenue       float64 `json:"totalRevenue"`
	ConversionRate     float64 `json:"conversionRate"`
}

// EventStats is a single grouped pass over events in a window.
type EventStats struct {
	TotalEvents    int64
	DistinctUsers  int64
	TotalPageViews int64
}

// PurchaseStats is a single grouped pass over purchase events in a window.
type PurchaseStats struct {
	TotalPurchases  int64
	TotalRevenue    float64
	PurchasingUsers int64
}

// SessionStats is a single grouped pass over sessions started in a window.
// A bounce is a session with at most one page view.
type SessionStats struct {
	TotalSessions int64
	AvgDurationMs float64
	Bounced       int64
}

// PageStat ranks one page by views within a window.
type PageStat struct {
	PageURL       string `json:"pageUrl"`
	Views         int64  `json:"views"`
	DistinctUsers int64  `json:"distinctUsers"`
}

// EventTypeStat is one slice of the event-type breakdown.
type EventTypeStat struct {
	EventType  EventType `json:"eventType"`
	Count      int64     `json:"count"`
	Percentage float64   `json:"percentage"`
}

// DailyActivityStat is one calendar day (UTC) of the activity series.
type DailyActivityStat struct {
	Date          string `json:"date"`
	DistinctUsers int64  `json:"distinctUsers"`
	Sessions      int64  `json:"sessions"`
	Events        int64  `json:"events"`
}

// CountryStat is one slice of the geographic breakdown.
type CountryStat struct {
	Country       string `json:"country"`
	Sessions      int64  `json:"sessions"`
	DistinctUsers int64  `json:"distinctUsers"`
}

// DeviceStat is one slice of the device breakdown.
type DeviceStat struct {
	Device     string  `json:"device"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// TrendMetrics holds period-over-period percentage changes between the
// current window and the equal-length window immediately preceding it.
type TrendMetrics struct {
	EventsChange    float64 `json:"eventsChange"`
	UsersChange     float64 `json:"usersChange"`
	PageViewsChange float64 `json:"pageViewsChange"`
	SessionsChange  float64 `json:"sessionsChange"`
	PurchasesChange float64 `json:"purchasesChange"`
	RevenueChange   float64 `json:"revenueChange"`
}

// DashboardMetrics is the full composed dashboard for one window.
type DashboardMetrics struct {
	Overview        OverviewMetrics     `json:"overview"`
	Previous        OverviewMetrics     `json:"previous"`
	Trends          TrendMetrics        `json:"trends"`
	TopPages        []PageStat          `json:"topPages"`
	EventBreakdown  []EventTypeStat     `json:"eventBreakdown"`
	DailyActivity   []DailyActivityStat `json:"dailyActivity"`
	GeoBreakdown    []CountryStat       `json:"geoBreakdown"`
	DeviceBreakdown []DeviceStat        `json:"deviceBreakdown"`
}

// ActiveUserCounts holds three independent lastSeen-window counts relative
// to a reference time. They are not cumulative buckets.
type ActiveUserCounts struct {
	Last1Day   int64 `json:"last1Day"`
	Last7Days  int64 `json:"last7Days"`
	Last30Days int64 `json:"last30Days"`
}

// SegmentCount is membership size of one segment.
type SegmentCount struct {
	Segment string `json:"segment"`
	Users   int64  `json:"users"`
}

// TopUser projects a user ranked by event volume.
type TopUser struct {
	VisitorID      string  `json:"visitorId"`
	Email          string  `json:"email,omitempty"`
	TotalEvents    int64   `json:"totalEvents"`
	TotalPurchases int64   `json:"totalPurchases"`
	TotalRevenue   float64 `json:"totalRevenue"`
}

// NewVsReturning splits the window's users into first-seen-in-window and
// seen-before-but-active-in-window. The two sets are disjoint by construction.
type NewVsReturning struct {
	New       int64 `json:"new"`
	Returning int64 `json:"returning"`
}

// UserInsights is the user-centric analytics view.
type UserInsights struct {
	ActiveUsers         ActiveUserCounts `json:"activeUsers"`
	SegmentDistribution []SegmentCount   `json:"segmentDistribution"`
	TopUsers            []TopUser        `json:"topUsers"`
	NewVsReturning      NewVsReturning   `json:"newVsReturning"`
}

// AnalyticsSummary is the compact totals projection consumed by the export
// job and the HTTP layer.
type AnalyticsSummary struct {
	TotalEvents   int64     `json:"totalEvents"`
	TotalUsers    int64     `json:"totalUsers"`
	TotalSessions int64     `json:"totalSessions"`
	TotalRevenue  float64   `json:"totalRevenue"`
	LastUpdated   time.Time `json:"lastUpdated"`
}
