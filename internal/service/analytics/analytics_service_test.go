package analytics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"pulse-analytics/internal/domain"
	"pulse-analytics/internal/repository/memory"
	"pulse-analytics/internal/service/ingest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type seqIDs struct{ n int }

func (g *seqIDs) NewID() string {
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

type fixture struct {
	events   *memory.EventRepository
	sessions *memory.SessionRepository
	users    *memory.UserRepository
	svc      Service
	now      time.Time
}

func newFixture(now time.Time) *fixture {
	f := &fixture{
		events:   memory.NewEventRepository(),
		sessions: memory.NewSessionRepository(),
		users:    memory.NewUserRepository(),
		now:      now,
	}
	f.svc = NewService(f.events, f.sessions, f.users, fixedClock{now}, nil)
	return f
}

func (f *fixture) seedEvent(t *testing.T, userID, sessionID string, et domain.EventType, ts time.Time, props domain.Properties, pageURL string) {
	t.Helper()
	err := f.events.Insert(context.Background(), &domain.Event{
		EventID:    fmt.Sprintf("e-%s-%d", userID, ts.UnixNano()),
		UserID:     userID,
		SessionID:  sessionID,
		EventType:  et,
		Timestamp:  ts,
		Properties: props,
		PageURL:    pageURL,
	})
	require.NoError(t, err)
}

func (f *fixture) seedSession(t *testing.T, sessionID, userID string, start time.Time, pageViews int64, meta domain.Metadata) {
	t.Helper()
	err := f.sessions.ApplyDelta(context.Background(), sessionID, domain.SessionDelta{
		UserID:    userID,
		Events:    pageViews,
		PageViews: pageViews,
		Metadata:  meta,
		Seen:      start,
	})
	require.NoError(t, err)
}

func TestComputeOverview_EndToEndScenario(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(now)

	ingestSvc := ingest.NewService(f.events, f.sessions, f.users, fixedClock{now}, &seqIDs{})
	for _, page := range []string{"/a", "/b", "/a"} {
		_, err := ingestSvc.Ingest(context.Background(), ingest.Input{
			UserID: "u1", SessionID: "s1", EventType: domain.EventPageView, PageURL: page,
		})
		require.NoError(t, err)
	}
	_, err := ingestSvc.Ingest(context.Background(), ingest.Input{
		UserID: "u1", SessionID: "s1", EventType: domain.EventPurchase,
		Properties: domain.Properties{"amount": 50},
	})
	require.NoError(t, err)
	ingestSvc.Wait()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC)
	overview, err := f.svc.ComputeOverview(context.Background(), start, end)
	require.NoError(t, err)

	assert.Equal(t, int64(4), overview.TotalEvents)
	assert.Equal(t, int64(1), overview.TotalUsers)
	assert.Equal(t, int64(3), overview.TotalPageViews)
	assert.Equal(t, int64(1), overview.TotalPurchases)
	assert.Equal(t, 50.0, overview.TotalRevenue)
	assert.Equal(t, 100.0, overview.ConversionRate)
	assert.Equal(t, int64(1), overview.ActiveUsers)
}

func TestComputeOverview_BounceRateRounding(t *testing.T) {
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	f := newFixture(now)

	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	f.seedSession(t, "s1", "u1", base, 1, domain.Metadata{})
	f.seedSession(t, "s2", "u2", base, 3, domain.Metadata{})
	f.seedSession(t, "s3", "u3", base, 5, domain.Metadata{})

	overview, err := f.svc.ComputeOverview(context.Background(), base.Add(-time.Hour), base.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, int64(3), overview.TotalSessions)
	assert.Equal(t, 33.33, overview.BounceRate)
}

func TestComputeOverview_EmptyWindow(t *testing.T) {
	f := newFixture(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	overview, err := f.svc.ComputeOverview(context.Background(),
		time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, &domain.OverviewMetrics{}, overview)
}

func TestComputeDashboard_TrendSymmetry(t *testing.T) {
	now := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)
	f := newFixture(now)

	day1 := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 2, 6, 0, 0, 0, time.UTC)

	// Identical activity in the previous and current windows.
	for i, ts := range []time.Time{day1, day2} {
		user := fmt.Sprintf("u%d", i+1)
		sess := fmt.Sprintf("s%d", i+1)
		f.seedEvent(t, user, sess, domain.EventPageView, ts, nil, "/p")
		f.seedEvent(t, user, sess, domain.EventPurchase, ts.Add(time.Minute), domain.Properties{"amount": 25}, "")
		f.seedSession(t, sess, user, ts, 1, domain.Metadata{})
	}

	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	dashboard, err := f.svc.ComputeDashboard(context.Background(), start, end)
	require.NoError(t, err)

	assert.Equal(t, domain.TrendMetrics{}, dashboard.Trends)
	assert.Equal(t, dashboard.Overview.TotalEvents, dashboard.Previous.TotalEvents)
}

func TestComputeDashboard_ZeroPreviousTrendRule(t *testing.T) {
	now := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)
	f := newFixture(now)

	ts := time.Date(2024, 1, 2, 6, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		f.seedEvent(t, fmt.Sprintf("u%d", i), fmt.Sprintf("s%d", i), domain.EventClick, ts, nil, "")
	}

	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	dashboard, err := f.svc.ComputeDashboard(context.Background(), start, end)
	require.NoError(t, err)

	assert.Equal(t, 100.0, dashboard.Trends.UsersChange)
	assert.Equal(t, 100.0, dashboard.Trends.EventsChange)
	// No page views in either period: 0 to 0 is flat, not growth.
	assert.Equal(t, 0.0, dashboard.Trends.PageViewsChange)
}

func TestComputeDashboard_BreakdownPercentagesSumToHundred(t *testing.T) {
	now := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)
	f := newFixture(now)

	ts := time.Date(2024, 1, 2, 6, 0, 0, 0, time.UTC)
	types := []domain.EventType{domain.EventPageView, domain.EventClick, domain.EventScroll}
	for _, et := range types {
		f.seedEvent(t, "u1", "s1", et, ts, nil, "/p")
	}

	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	dashboard, err := f.svc.ComputeDashboard(context.Background(), start, end)
	require.NoError(t, err)

	require.Len(t, dashboard.EventBreakdown, len(types))
	var sum float64
	for _, stat := range dashboard.EventBreakdown {
		sum += stat.Percentage
	}
	assert.InDelta(t, 100.0, sum, 0.01*float64(len(types)))
}

func TestComputeDashboard_BreakdownsAndSeries(t *testing.T) {
	now := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)
	f := newFixture(now)

	day2 := time.Date(2024, 1, 2, 6, 0, 0, 0, time.UTC)
	day3 := time.Date(2024, 1, 3, 6, 0, 0, 0, time.UTC)

	f.seedEvent(t, "u1", "s1", domain.EventPageView, day2, nil, "/top")
	f.seedEvent(t, "u2", "s2", domain.EventPageView, day2.Add(time.Minute), nil, "/top")
	f.seedEvent(t, "u1", "s1", domain.EventPageView, day3, nil, "/other")

	f.seedSession(t, "s1", "u1", day2, 2, domain.Metadata{Device: "desktop", Country: "US"})
	f.seedSession(t, "s2", "u2", day2, 1, domain.Metadata{Country: "US"})

	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)
	dashboard, err := f.svc.ComputeDashboard(context.Background(), start, end)
	require.NoError(t, err)

	require.NotEmpty(t, dashboard.TopPages)
	assert.Equal(t, "/top", dashboard.TopPages[0].PageURL)
	assert.Equal(t, int64(2), dashboard.TopPages[0].Views)
	assert.Equal(t, int64(2), dashboard.TopPages[0].DistinctUsers)

	require.Len(t, dashboard.DailyActivity, 2)
	assert.Equal(t, "2024-01-02", dashboard.DailyActivity[0].Date)
	assert.Equal(t, int64(2), dashboard.DailyActivity[0].DistinctUsers)
	assert.Equal(t, "2024-01-03", dashboard.DailyActivity[1].Date)

	require.Len(t, dashboard.GeoBreakdown, 1)
	assert.Equal(t, "US", dashboard.GeoBreakdown[0].Country)
	assert.Equal(t, int64(2), dashboard.GeoBreakdown[0].Sessions)

	require.Len(t, dashboard.DeviceBreakdown, 2)
	for _, stat := range dashboard.DeviceBreakdown {
		assert.Equal(t, 50.0, stat.Percentage)
	}
}

func seedUser(t *testing.T, users *memory.UserRepository, visitorID string, seen ...time.Time) {
	t.Helper()
	for _, ts := range seen {
		err := users.ApplyDelta(context.Background(), visitorID, domain.UserDelta{Events: 1, Seen: ts})
		require.NoError(t, err)
	}
}

func TestComputeUserInsights_NewVsReturningDisjoint(t *testing.T) {
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	f := newFixture(now)

	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)

	// First seen inside the window: new.
	seedUser(t, f.users, "new-user", start.Add(24*time.Hour))
	// First seen before, active inside: returning.
	seedUser(t, f.users, "returning-user", start.Add(-72*time.Hour), start.Add(48*time.Hour))
	// Active only before the window: neither.
	seedUser(t, f.users, "dormant-user", start.Add(-96*time.Hour))

	insights, err := f.svc.ComputeUserInsights(context.Background(), start, end)
	require.NoError(t, err)

	assert.Equal(t, int64(1), insights.NewVsReturning.New)
	assert.Equal(t, int64(1), insights.NewVsReturning.Returning)

	active, err := f.users.CountActiveBetween(context.Background(), start, end)
	require.NoError(t, err)
	assert.Equal(t, active, insights.NewVsReturning.New+insights.NewVsReturning.Returning)
}

func TestComputeUserInsights_ActiveWindowsAndTopUsers(t *testing.T) {
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	f := newFixture(now)

	seedUser(t, f.users, "daily", now.Add(-12*time.Hour))
	seedUser(t, f.users, "weekly", now.Add(-3*24*time.Hour))
	seedUser(t, f.users, "monthly", now.Add(-20*24*time.Hour))
	for i := 0; i < 5; i++ {
		seedUser(t, f.users, "heavy", now.Add(-time.Hour))
	}
	require.NoError(t, f.users.AddToSegment(context.Background(), "heavy", "power"))
	require.NoError(t, f.users.AddToSegment(context.Background(), "daily", "power"))
	require.NoError(t, f.users.AddToSegment(context.Background(), "daily", "trial"))

	insights, err := f.svc.ComputeUserInsights(context.Background(), now.AddDate(0, 0, -30), now)
	require.NoError(t, err)

	assert.Equal(t, int64(2), insights.ActiveUsers.Last1Day)
	assert.Equal(t, int64(3), insights.ActiveUsers.Last7Days)
	assert.Equal(t, int64(4), insights.ActiveUsers.Last30Days)

	require.NotEmpty(t, insights.TopUsers)
	assert.Equal(t, "heavy", insights.TopUsers[0].VisitorID)
	assert.Equal(t, int64(5), insights.TopUsers[0].TotalEvents)

	// A user in two segments counts once toward each.
	require.Len(t, insights.SegmentDistribution, 2)
	assert.Equal(t, domain.SegmentCount{Segment: "power", Users: 2}, insights.SegmentDistribution[0])
	assert.Equal(t, domain.SegmentCount{Segment: "trial", Users: 1}, insights.SegmentDistribution[1])
}

func TestGetAnalyticsSummary(t *testing.T) {
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	f := newFixture(now)

	ts := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	f.seedEvent(t, "u1", "s1", domain.EventPurchase, ts, domain.Properties{"amount": 19.99}, "")
	f.seedEvent(t, "u1", "s1", domain.EventPageView, ts, nil, "/p")
	f.seedSession(t, "s1", "u1", ts, 1, domain.Metadata{})
	seedUser(t, f.users, "u1", ts)

	summary, err := f.svc.GetAnalyticsSummary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), summary.TotalEvents)
	assert.Equal(t, int64(1), summary.TotalUsers)
	assert.Equal(t, int64(1), summary.TotalSessions)
	assert.Equal(t, 19.99, summary.TotalRevenue)
	assert.Equal(t, now, summary.LastUpdated)
}

func TestChange(t *testing.T) {
	tests := []struct {
		name     string
		current  float64
		previous float64
		want     float64
	}{
		{"growth", 150, 100, 50},
		{"decline", 50, 100, -50},
		{"flat", 100, 100, 0},
		{"from zero", 5, 0, 100},
		{"both zero", 0, 0, 0},
		{"rounded", 1, 3, -66.67},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, change(tt.current, tt.previous))
		})
	}
}
