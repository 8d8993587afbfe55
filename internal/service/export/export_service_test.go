package export

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pulse-analytics/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type stubEngine struct {
	dashboard *domain.DashboardMetrics
	start     time.Time
	end       time.Time
}

func (s *stubEngine) ComputeOverview(ctx context.Context, start, end time.Time) (*domain.OverviewMetrics, error) {
	return &s.dashboard.Overview, nil
}

func (s *stubEngine) ComputeDashboard(ctx context.Context, start, end time.Time) (*domain.DashboardMetrics, error) {
	s.start, s.end = start, end
	return s.dashboard, nil
}

func (s *stubEngine) ComputeUserInsights(ctx context.Context, start, end time.Time) (*domain.UserInsights, error) {
	return &domain.UserInsights{}, nil
}

func (s *stubEngine) GetAnalyticsSummary(ctx context.Context) (*domain.AnalyticsSummary, error) {
	return &domain.AnalyticsSummary{}, nil
}

func TestJob_RunWritesDailyReport(t *testing.T) {
	now := time.Date(2024, 1, 2, 10, 30, 0, 0, time.UTC)
	engine := &stubEngine{dashboard: &domain.DashboardMetrics{
		Overview: domain.OverviewMetrics{TotalEvents: 42},
	}}
	path := filepath.Join(t.TempDir(), "reports.jsonl")
	job := NewJob(engine, &FileSink{Path: path}, fixedClock{now})

	err := job.Run(context.Background(), Daily)
	require.NoError(t, err)

	// The window is the last full day ending at the most recent UTC midnight.
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), engine.end)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), engine.start)

	payload, err := os.ReadFile(path)
	require.NoError(t, err)

	var report Report
	require.NoError(t, json.Unmarshal(payload, &report))
	assert.Equal(t, Daily, report.Window)
	assert.Equal(t, int64(42), report.Dashboard.Overview.TotalEvents)
	assert.Equal(t, now, report.GeneratedAt)
}

func TestJob_WindowSpans(t *testing.T) {
	now := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	engine := &stubEngine{dashboard: &domain.DashboardMetrics{}}
	path := filepath.Join(t.TempDir(), "reports.jsonl")
	job := NewJob(engine, &FileSink{Path: path}, fixedClock{now})

	require.NoError(t, job.Run(context.Background(), Weekly))
	assert.Equal(t, 7*24*time.Hour, engine.end.Sub(engine.start))

	require.NoError(t, job.Run(context.Background(), Monthly))
	assert.Equal(t, 30*24*time.Hour, engine.end.Sub(engine.start))

	// Two runs appended two JSON lines.
	payload, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, countLines(payload))
}

func countLines(b []byte) int {
	n := 0
	for _, c := range b {
		if c == '\n' {
			n++
		}
	}
	return n
}
