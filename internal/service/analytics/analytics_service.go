package analytics

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"pulse-analytics/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	defaultTopPages    = 10
	defaultTopUsers    = 10
	defaultGeoLimit    = 20
	summaryCacheKey    = "analytics:summary"
	summaryCacheExpiry = 60 * time.Second
)

// Service is the aggregation engine. All reads are pure; a failing
// sub-query propagates as a single error, never as a partial dashboard.
type Service interface {
	// ComputeOverview computes the core metric set for [start, end].
	ComputeOverview(ctx context.Context, start, end time.Time) (*domain.OverviewMetrics, error)

	// ComputeDashboard composes the full dashboard for [start, end],
	// including trends against the equal-length preceding window.
	ComputeDashboard(ctx context.Context, start, end time.Time) (*domain.DashboardMetrics, error)

	// ComputeUserInsights computes user-centric metrics scoped to
	// [start, end]; end doubles as the reference time for the 1/7/30-day
	// active-user windows.
	ComputeUserInsights(ctx context.Context, start, end time.Time) (*domain.UserInsights, error)

	// GetAnalyticsSummary returns the compact all-time totals projection,
	// served from cache when one is configured.
	GetAnalyticsSummary(ctx context.Context) (*domain.AnalyticsSummary, error)
}

type service struct {
	events   domain.EventRepository
	sessions domain.SessionRepository
	users    domain.UserRepository
	clock    domain.Clock
	cache    *redis.Client
}

// NewService creates the aggregation engine. cache may be nil to disable
// summary caching.
func NewService(events domain.EventRepository, sessions domain.SessionRepository, users domain.UserRepository, clock domain.Clock, cache *redis.Client) Service {
	return &service{
		events:   events,
		sessions: sessions,
		users:    users,
		clock:    clock,
		cache:    cache,
	}
}

func (s *service) ComputeOverview(ctx context.Context, start, end time.Time) (*domain.OverviewMetrics, error) {
	var (
		eventStats    *domain.EventStats
		sessionStats  *domain.SessionStats
		purchaseStats *domain.PurchaseStats
		activeUsers   int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		eventStats, err = s.events.Stats(gctx, start, end)
		return err
	})
	g.Go(func() (err error) {
		sessionStats, err = s.sessions.Stats(gctx, start, end)
		return err
	})
	g.Go(func() (err error) {
		purchaseStats, err = s.events.PurchaseStats(gctx, start, end)
		return err
	})
	g.Go(func() (err error) {
		activeUsers, err = s.users.CountActiveBetween(gctx, start, end)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	overview := &domain.OverviewMetrics{
		TotalEvents:    eventStats.TotalEvents,
		TotalUsers:     eventStats.DistinctUsers,
		TotalPageViews: eventStats.TotalPageViews,
		TotalSessions:  sessionStats.TotalSessions,
		ActiveUsers:    activeUsers,
		TotalPurchases: purchaseStats.TotalPurchases,
		TotalRevenue:   round2(purchaseStats.TotalRevenue),
	}
	overview.AvgSessionDuration = round2(sessionStats.AvgDurationMs)
	if sessionStats.TotalSessions > 0 {
		overview.BounceRate = round2(float64(sessionStats.Bounced) / float64(sessionStats.TotalSessions) * 100)
	}
	if eventStats.DistinctUsers > 0 {
		overview.ConversionRate = round2(float64(purchaseStats.PurchasingUsers) / float64(eventStats.DistinctUsers) * 100)
	}

	return overview, nil
}

func (s *service) ComputeDashboard(ctx context.Context, start, end time.Time) (*domain.DashboardMetrics, error) {
	// Equal-length window immediately preceding the current one.
	prevStart := start.Add(-end.Sub(start))
	prevEnd := start

	dashboard := &domain.DashboardMetrics{}
	var current, previous *domain.OverviewMetrics

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		current, err = s.ComputeOverview(gctx, start, end)
		return err
	})
	g.Go(func() (err error) {
		previous, err = s.ComputeOverview(gctx, prevStart, prevEnd)
		return err
	})
	g.Go(func() (err error) {
		dashboard.TopPages, err = s.events.TopPages(gctx, start, end, defaultTopPages)
		return err
	})
	g.Go(func() (err error) {
		dashboard.EventBreakdown, err = s.eventBreakdown(gctx, start, end)
		return err
	})
	g.Go(func() (err error) {
		dashboard.DailyActivity, err = s.events.DailyActivity(gctx, start, end)
		return err
	})
	g.Go(func() (err error) {
		dashboard.GeoBreakdown, err = s.sessions.CountryBreakdown(gctx, start, end, defaultGeoLimit)
		return err
	})
	g.Go(func() (err error) {
		dashboard.DeviceBreakdown, err = s.deviceBreakdown(gctx, start, end)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dashboard.Overview = *current
	dashboard.Previous = *previous
	dashboard.Trends = domain.TrendMetrics{
		EventsChange:    change(float64(current.TotalEvents), float64(previous.TotalEvents)),
		UsersChange:     change(float64(current.TotalUsers), float64(previous.TotalUsers)),
		PageViewsChange: change(float64(current.TotalPageViews), float64(previous.TotalPageViews)),
		SessionsChange:  change(float64(current.TotalSessions), float64(previous.TotalSessions)),
		PurchasesChange: change(float64(current.TotalPurchases), float64(previous.TotalPurchases)),
		RevenueChange:   change(current.TotalRevenue, previous.TotalRevenue),
	}

	return dashboard, nil
}

func (s *service) eventBreakdown(ctx context.Context, start, end time.Time) ([]domain.EventTypeStat, error) {
	stats, err := s.events.TypeCounts(ctx, start, end)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, stat := range stats {
		total += stat.Count
	}
	if total == 0 {
		return stats, nil
	}
	for i := range stats {
		stats[i].Percentage = round2(float64(stats[i].Count) / float64(total) * 100)
	}
	return stats, nil
}

func (s *service) deviceBreakdown(ctx context.Context, start, end time.Time) ([]domain.DeviceStat, error) {
	stats, err := s.sessions.DeviceBreakdown(ctx, start, end)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, stat := range stats {
		total += stat.Count
	}
	if total == 0 {
		return stats, nil
	}
	for i := range stats {
		stats[i].Percentage = round2(float64(stats[i].Count) / float64(total) * 100)
	}
	return stats, nil
}

func (s *service) ComputeUserInsights(ctx context.Context, start, end time.Time) (*domain.UserInsights, error) {
	insights := &domain.UserInsights{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		insights.ActiveUsers.Last1Day, err = s.users.CountActiveBetween(gctx, end.AddDate(0, 0, -1), end)
		return err
	})
	g.Go(func() (err error) {
		insights.ActiveUsers.Last7Days, err = s.users.CountActiveBetween(gctx, end.AddDate(0, 0, -7), end)
		return err
	})
	g.Go(func() (err error) {
		insights.ActiveUsers.Last30Days, err = s.users.CountActiveBetween(gctx, end.AddDate(0, 0, -30), end)
		return err
	})
	g.Go(func() (err error) {
		insights.SegmentDistribution, err = s.users.SegmentDistribution(gctx)
		return err
	})
	g.Go(func() (err error) {
		insights.TopUsers, err = s.users.TopByEvents(gctx, defaultTopUsers)
		return err
	})
	g.Go(func() (err error) {
		insights.NewVsReturning.New, err = s.users.CountNewBetween(gctx, start, end)
		return err
	})
	g.Go(func() (err error) {
		insights.NewVsReturning.Returning, err = s.users.CountReturningBetween(gctx, start, end)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return insights, nil
}

func (s *service) GetAnalyticsSummary(ctx context.Context) (*domain.AnalyticsSummary, error) {
	if cached := s.summaryFromCache(ctx); cached != nil {
		return cached, nil
	}

	now := s.clock.Now()
	epoch := time.Unix(0, 0).UTC()

	var (
		eventStats    *domain.EventStats
		sessionStats  *domain.SessionStats
		purchaseStats *domain.PurchaseStats
		totalUsers    int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		eventStats, err = s.events.Stats(gctx, epoch, now)
		return err
	})
	g.Go(func() (err error) {
		sessionStats, err = s.sessions.Stats(gctx, epoch, now)
		return err
	})
	g.Go(func() (err error) {
		purchaseStats, err = s.events.PurchaseStats(gctx, epoch, now)
		return err
	})
	g.Go(func() (err error) {
		totalUsers, err = s.users.CountActiveBetween(gctx, epoch, now)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &domain.AnalyticsSummary{
		TotalEvents:   eventStats.TotalEvents,
		TotalUsers:    totalUsers,
		TotalSessions: sessionStats.TotalSessions,
		TotalRevenue:  round2(purchaseStats.TotalRevenue),
		LastUpdated:   now,
	}
	s.summaryToCache(ctx, summary)

	return summary, nil
}

// summaryFromCache is best effort; a cache failure never fails the read.
func (s *service) summaryFromCache(ctx context.Context) *domain.AnalyticsSummary {
	if s.cache == nil {
		return nil
	}
	payload, err := s.cache.Get(ctx, summaryCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Msg("summary cache read failed")
		}
		return nil
	}
	var summary domain.AnalyticsSummary
	if err := json.Unmarshal(payload, &summary); err != nil {
		return nil
	}
	return &summary
}

func (s *service) summaryToCache(ctx context.Context, summary *domain.AnalyticsSummary) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, summaryCacheKey, payload, summaryCacheExpiry).Err(); err != nil {
		log.Warn().Err(err).Msg("summary cache write failed")
	}
}

// change is the period-over-period percentage. A zero previous period maps
// to 100 when the current period is non-zero, 0 otherwise.
func change(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return math.Round(((current-previous)/previous)*10000) / 100
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
