package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"VideoCurator/internal/domain"
	"VideoCurator/internal/logging"
)

func newTestSweep(runs *memRuns, locker *memLocker, notifier *runNotifier) *Sweep {
	return NewSweep(SweepDeps{
		Runs:     runs,
		Locker:   locker,
		Notifier: notifier,
		Stuck:    2 * time.Hour,
		Logger:   logging.NewNop(),
		Now:      func() time.Time { return fixedNow },
	})
}

func runningRun(startedAt time.Time) domain.CurationRun {
	return domain.CurationRun{
		ID:        uuid.New(),
		Trigger:   domain.TriggerScheduled,
		Status:    domain.RunRunning,
		StartedAt: startedAt,
	}
}

func TestSweepRecoversStuckRuns(t *testing.T) {
	t.Parallel()

	stuckA := runningRun(fixedNow.Add(-3 * time.Hour))
	stuckB := runningRun(fixedNow.Add(-5 * time.Hour))
	fresh := runningRun(fixedNow.Add(-10 * time.Minute))

	runs := &memRuns{rows: map[uuid.UUID]domain.CurationRun{
		stuckA.ID: stuckA,
		stuckB.ID: stuckB,
		fresh.ID:  fresh,
	}}
	locker := &memLocker{slots: map[string]uuid.UUID{runSlot: stuckA.ID}}
	notifier := &runNotifier{}

	s := newTestSweep(runs, locker, notifier)
	s.Run(context.Background())

	for _, id := range []uuid.UUID{stuckA.ID, stuckB.ID} {
		got := runs.rows[id]
		if got.Status != domain.RunFailed {
			t.Fatalf("stuck run %s not failed: %s", id, got.Status)
		}
		if !strings.HasPrefix(got.ErrorMessage, "auto-recovery: stuck for") {
			t.Fatalf("unexpected message: %s", got.ErrorMessage)
		}
		if got.CompletedAt == nil {
			t.Fatalf("completion time not set for %s", id)
		}
	}
	if runs.rows[stuckA.ID].ErrorMessage != "auto-recovery: stuck for 3.0 hours" {
		t.Fatalf("unexpected message: %s", runs.rows[stuckA.ID].ErrorMessage)
	}

	if got := runs.rows[fresh.ID]; got.Status != domain.RunRunning {
		t.Fatalf("fresh run must stay running, got %s", got.Status)
	}

	if len(locker.slots) != 0 {
		t.Fatalf("stuck run's slot must be force-released")
	}
	if len(locker.forced) != 2 {
		t.Fatalf("expected 2 force releases, got %d", len(locker.forced))
	}

	if len(notifier.sent) != 1 {
		t.Fatalf("expected one batched notification, got %d", len(notifier.sent))
	}
	body := notifier.sent[0]
	if !strings.Contains(body, stuckA.ID.String()) || !strings.Contains(body, stuckB.ID.String()) {
		t.Fatalf("notification must list every recovered run: %s", body)
	}
}

func TestSweepLeavesNothingStuckPastThreshold(t *testing.T) {
	t.Parallel()

	runs := &memRuns{rows: map[uuid.UUID]domain.CurationRun{}}
	for i := 0; i < 5; i++ {
		run := runningRun(fixedNow.Add(-time.Duration(i+3) * time.Hour))
		runs.rows[run.ID] = run
	}

	s := newTestSweep(runs, &memLocker{}, &runNotifier{})
	s.Run(context.Background())

	threshold := fixedNow.Add(-2 * time.Hour)
	for id, run := range runs.rows {
		if run.Status == domain.RunRunning && run.StartedAt.Before(threshold) {
			t.Fatalf("run %s still running past the threshold", id)
		}
	}
}

func TestSweepQuietWhenNothingStuck(t *testing.T) {
	t.Parallel()

	fresh := runningRun(fixedNow.Add(-30 * time.Minute))
	runs := &memRuns{rows: map[uuid.UUID]domain.CurationRun{fresh.ID: fresh}}
	notifier := &runNotifier{}

	s := newTestSweep(runs, &memLocker{}, notifier)
	s.Run(context.Background())

	if len(notifier.sent) != 0 {
		t.Fatalf("expected no notification, got %v", notifier.sent)
	}
}

func TestSweepContainsStoreFailure(t *testing.T) {
	t.Parallel()

	runs := &memRuns{listErr: errors.New("store unavailable")}
	notifier := &runNotifier{}

	s := newTestSweep(runs, &memLocker{}, notifier)
	s.Run(context.Background())

	if len(notifier.sent) != 1 || !strings.Contains(notifier.sent[0], "sweep failed") {
		t.Fatalf("expected a failure notice, got %v", notifier.sent)
	}
}

func TestSweepContainsNotifierFailureToo(t *testing.T) {
	t.Parallel()

	runs := &memRuns{listErr: errors.New("store unavailable")}
	notifier := &runNotifier{err: errors.New("channel down")}

	s := newTestSweep(runs, &memLocker{}, notifier)
	// Must not panic; both failures end up in the log only.
	s.Run(context.Background())
}

func TestRecoverRunRejectsNonRunning(t *testing.T) {
	t.Parallel()

	done := runningRun(fixedNow.Add(-time.Hour))
	done.Status = domain.RunCompleted
	runs := &memRuns{rows: map[uuid.UUID]domain.CurationRun{done.ID: done}}

	s := newTestSweep(runs, &memLocker{}, &runNotifier{})

	err := s.RecoverRun(context.Background(), done.ID, "operator request")
	if err == nil || !strings.Contains(err.Error(), "only running runs") {
		t.Fatalf("expected refusal for non-running run, got %v", err)
	}
}

func TestRecoverRunUnknownID(t *testing.T) {
	t.Parallel()

	s := newTestSweep(&memRuns{}, &memLocker{}, &runNotifier{})

	err := s.RecoverRun(context.Background(), uuid.New(), "")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestRecoverRunMarksManualRecovery(t *testing.T) {
	t.Parallel()

	run := runningRun(fixedNow.Add(-time.Hour))
	runs := &memRuns{rows: map[uuid.UUID]domain.CurationRun{run.ID: run}}
	locker := &memLocker{slots: map[string]uuid.UUID{runSlot: run.ID}}

	s := newTestSweep(runs, locker, &runNotifier{})

	if err := s.RecoverRun(context.Background(), run.ID, "hung on provider"); err != nil {
		t.Fatalf("RecoverRun error: %v", err)
	}

	got := runs.rows[run.ID]
	if got.Status != domain.RunFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
	if got.ErrorMessage != "manual recovery: hung on provider" {
		t.Fatalf("unexpected message: %s", got.ErrorMessage)
	}
	if len(locker.slots) != 0 {
		t.Fatalf("slot must be force-released")
	}
}
