package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"pulse-analytics/internal/domain"
	"pulse-analytics/internal/service/analytics"

	"github.com/rs/zerolog/log"
)

// Window is a fixed reporting period.
type Window string

const (
	Daily   Window = "daily"
	Weekly  Window = "weekly"
	Monthly Window = "monthly"
)

func (w Window) span() time.Duration {
	switch w {
	case Weekly:
		return 7 * 24 * time.Hour
	case Monthly:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Report is one exported dashboard snapshot.
type Report struct {
	Window      Window                   `json:"window"`
	Start       time.Time                `json:"start"`
	End         time.Time                `json:"end"`
	Dashboard   *domain.DashboardMetrics `json:"dashboard"`
	GeneratedAt time.Time                `json:"generatedAt"`
}

// Sink receives finished reports. The destination (file, object storage,
// warehouse) is outside the core's concern.
type Sink interface {
	Write(ctx context.Context, report *Report) error
}

// FileSink appends reports as JSON lines to a local file.
type FileSink struct {
	Path string
}

func (s *FileSink) Write(ctx context.Context, report *Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	f, err := os.OpenFile(s.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open report file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Job computes dashboards for fixed windows and hands them to a sink. It is
// purely a consumer of the aggregation engine's contract.
type Job struct {
	engine analytics.Service
	sink   Sink
	clock  domain.Clock
}

// NewJob creates the export job.
func NewJob(engine analytics.Service, sink Sink, clock domain.Clock) *Job {
	return &Job{
		engine: engine,
		sink:   sink,
		clock:  clock,
	}
}

// Run exports one report for the window ending at the most recent UTC
// midnight.
func (j *Job) Run(ctx context.Context, window Window) error {
	end := j.clock.Now().UTC().Truncate(24 * time.Hour)
	start := end.Add(-window.span())

	dashboard, err := j.engine.ComputeDashboard(ctx, start, end)
	if err != nil {
		return fmt.Errorf("failed to compute %s report: %w", window, err)
	}

	report := &Report{
		Window:      window,
		Start:       start,
		End:         end,
		Dashboard:   dashboard,
		GeneratedAt: j.clock.Now(),
	}
	if err := j.sink.Write(ctx, report); err != nil {
		return fmt.Errorf("failed to export %s report: %w", window, err)
	}

	log.Info().Str("window", string(window)).Time("start", start).Time("end", end).Msg("exported analytics report")
	return nil
}
