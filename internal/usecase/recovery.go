package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"VideoCurator/internal/domain"
	"VideoCurator/internal/ports"
)

// SweepDeps wires the stuck-run recovery sweep.
type SweepDeps struct {
	Runs     ports.RunRepository
	Locker   ports.RunLocker
	Notifier ports.Notifier
	Stuck    time.Duration
	Logger   *slog.Logger
	Now      func() time.Time
}

// Sweep force-fails runs stuck past the threshold and frees their lock
// slots. It runs on its own timer, independent of any curation invocation.
type Sweep struct {
	runs     ports.RunRepository
	locker   ports.RunLocker
	notifier ports.Notifier
	stuck    time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewSweep constructs the recovery sweep.
func NewSweep(deps SweepDeps) *Sweep {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Sweep{
		runs:     deps.Runs,
		locker:   deps.Locker,
		notifier: deps.Notifier,
		stuck:    deps.Stuck,
		logger:   deps.Logger,
		now:      now,
	}
}

// Run executes one sweep pass. It never returns an error: the host
// scheduler must survive a broken store, so failures are logged and
// reported best-effort.
func (s *Sweep) Run(ctx context.Context) {
	recovered, err := s.sweep(ctx)
	if err != nil {
		s.logger.Error("recovery sweep failed", "error", err)
		s.notify(ctx, "Recovery sweep failed", err.Error())
		return
	}
	if len(recovered) == 0 {
		return
	}

	lines := make([]string, 0, len(recovered))
	for _, run := range recovered {
		lines = append(lines, fmt.Sprintf("- run %s (%s): %s", run.ID, run.Trigger, run.ErrorMessage))
	}
	s.notify(ctx, fmt.Sprintf("Recovered %d stuck runs", len(recovered)), strings.Join(lines, "\n"))
}

func (s *Sweep) sweep(ctx context.Context) ([]domain.CurationRun, error) {
	now := s.now()
	cutoff := now.Add(-s.stuck)

	stuck, err := s.runs.RunningSince(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list stuck runs: %w", err)
	}

	var recovered []domain.CurationRun
	for _, run := range stuck {
		hours := run.StuckFor(now).Hours()
		message := fmt.Sprintf("auto-recovery: stuck for %.1f hours", hours)

		if err := s.runs.Finish(ctx, run.ID, domain.RunFailed, run.CandidatesEvaluated, run.CandidatesAccepted, message, now); err != nil {
			s.logger.Error("stuck run transition failed", "run_id", run.ID, "error", err)
			continue
		}
		if err := s.locker.ForceReleaseByRun(ctx, run.ID); err != nil {
			s.logger.Error("lock release failed for recovered run", "run_id", run.ID, "error", err)
		}

		run.ErrorMessage = message
		recovered = append(recovered, run)
		s.logger.Warn("stuck run recovered", "run_id", run.ID, "stuck_hours", hours)
	}
	return recovered, nil
}

// RecoverRun force-fails one run with an operator-supplied note. Only runs
// currently marked running can be recovered.
func (s *Sweep) RecoverRun(ctx context.Context, id uuid.UUID, note string) error {
	run, err := s.runs.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load run: %w", err)
	}
	if run == nil {
		return fmt.Errorf("run %s not found", id)
	}
	if run.Status != domain.RunRunning {
		return fmt.Errorf("run %s is %s, only running runs can be recovered", id, run.Status)
	}

	message := "manual recovery"
	if note != "" {
		message = "manual recovery: " + note
	}
	if err := s.runs.Finish(ctx, id, domain.RunFailed, run.CandidatesEvaluated, run.CandidatesAccepted, message, s.now()); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if err := s.locker.ForceReleaseByRun(ctx, id); err != nil {
		s.logger.Error("lock release failed for recovered run", "run_id", id, "error", err)
	}

	s.logger.Info("run manually recovered", "run_id", id, "note", note)
	return nil
}

func (s *Sweep) notify(ctx context.Context, subject, body string) {
	if err := s.notifier.Send(ctx, "", subject, body); err != nil {
		s.logger.Error("recovery notification failed", "error", err)
	}
}
