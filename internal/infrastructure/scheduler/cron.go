package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"VideoCurator/internal/ports"
	"VideoCurator/pkg/logger"
)

// CronScheduler drives the recurring jobs with robfig/cron.
type CronScheduler struct {
	cron *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler evaluating specs in the given timezone.
func NewCronScheduler(loc *time.Location) *CronScheduler {
	return &CronScheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cron.PrintfLogger(logger.New("cron"))),
		),
	}
}

// Add registers a named job under a standard five-field cron spec.
func (c *CronScheduler) Add(spec, name string, job func()) error {
	if job == nil {
		return fmt.Errorf("job %s is nil", name)
	}

	if _, err := c.cron.AddFunc(spec, job); err != nil {
		return fmt.Errorf("add job %s (%q): %w", name, spec, err)
	}

	return nil
}

// Start launches the cron loop in its own goroutine.
func (c *CronScheduler) Start(_ context.Context) error {
	c.cron.Start()
	return nil
}

// Stop halts scheduling and waits for in-flight jobs, bounded by ctx.
func (c *CronScheduler) Stop(ctx context.Context) error {
	stopped := c.cron.Stop()

	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
