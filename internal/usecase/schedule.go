package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"VideoCurator/internal/config"
	"VideoCurator/internal/domain"
	"VideoCurator/internal/ports"
)

// MetricsAggregator computes and persists the daily feedback aggregate.
type MetricsAggregator interface {
	AggregateDaily(ctx context.Context, day time.Time) (domain.DailyMetrics, error)
}

// OutcomeBatcher evaluates recently recorded recommendation outcomes.
type OutcomeBatcher interface {
	EvaluateRecent(ctx context.Context) (int, error)
}

// LibraryAuditor verifies stored videos are still reachable upstream.
type LibraryAuditor interface {
	CheckAll(ctx context.Context) (int, error)
}

// ScheduleDeps wires the recurring jobs to the cron driver.
type ScheduleDeps struct {
	Driver   ports.Scheduler
	Curation *Curation
	Sweep    *Sweep
	Metrics  MetricsAggregator
	Outcomes OutcomeBatcher
	Liveness LibraryAuditor
	Specs    config.SchedulerConfig
	Logger   *slog.Logger
	Now      func() time.Time
}

// Schedule registers the recurring jobs and owns the driver lifecycle.
type Schedule struct {
	driver   ports.Scheduler
	curation *Curation
	sweep    *Sweep
	metrics  MetricsAggregator
	outcomes OutcomeBatcher
	liveness LibraryAuditor
	specs    config.SchedulerConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewSchedule constructs the job schedule.
func NewSchedule(deps ScheduleDeps) *Schedule {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Schedule{
		driver:   deps.Driver,
		curation: deps.Curation,
		sweep:    deps.Sweep,
		metrics:  deps.Metrics,
		outcomes: deps.Outcomes,
		liveness: deps.Liveness,
		specs:    deps.Specs,
		logger:   deps.Logger,
		now:      now,
	}
}

// Start registers every job with the driver and starts it. Job errors are
// logged, never propagated: a failing store must not kill the schedule.
func (s *Schedule) Start(ctx context.Context) error {
	jobs := []struct {
		spec string
		name string
		fn   func()
	}{
		{s.specs.CurationSpec, "curation-run", func() {
			_, err := s.curation.Run(ctx, domain.TriggerScheduled)
			if err != nil && !errors.Is(err, ErrRunInProgress) {
				s.logger.Error("scheduled curation run failed", "error", err)
			}
		}},
		{s.specs.SweepSpec, "recovery-sweep", func() {
			s.sweep.Run(ctx)
		}},
		{s.specs.MetricsSpec, "daily-metrics", func() {
			day := s.now().AddDate(0, 0, -1)
			if _, err := s.metrics.AggregateDaily(ctx, day); err != nil {
				s.logger.Error("daily aggregation failed", "error", err)
			}
		}},
		{s.specs.OutcomeSpec, "outcome-batch", func() {
			if _, err := s.outcomes.EvaluateRecent(ctx); err != nil {
				s.logger.Error("outcome batch failed", "error", err)
			}
		}},
		{s.specs.LivenessSpec, "liveness-audit", func() {
			if _, err := s.liveness.CheckAll(ctx); err != nil {
				s.logger.Error("liveness audit failed", "error", err)
			}
		}},
	}

	for _, job := range jobs {
		if err := s.driver.Add(job.spec, job.name, job.fn); err != nil {
			return fmt.Errorf("register %s: %w", job.name, err)
		}
		s.logger.Info("job registered", "job", job.name, "spec", job.spec)
	}

	return s.driver.Start(ctx)
}

// Stop tears down the cron driver.
func (s *Schedule) Stop(ctx context.Context) error {
	return s.driver.Stop(ctx)
}
