package quota

import (
	"errors"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestReserveWithinBudget(t *testing.T) {
	t.Parallel()

	g := NewGuard(250, nil, fixedClock(time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)))

	if err := g.Reserve(CallSearch); err != nil {
		t.Fatalf("first search should fit: %v", err)
	}
	g.Commit(CallSearch)

	if err := g.Reserve(CallSearch); err != nil {
		t.Fatalf("second search should fit: %v", err)
	}
	g.Commit(CallSearch)

	if err := g.Reserve(CallDetails); err != nil {
		t.Fatalf("details should fit in the remaining 50 units: %v", err)
	}
}

func TestReservePredictsExhaustion(t *testing.T) {
	t.Parallel()

	g := NewGuard(150, nil, fixedClock(time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)))

	g.Commit(CallSearch)

	err := g.Reserve(CallSearch)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if !g.Snapshot().Exhausted {
		t.Fatalf("predicted exhaustion should be recorded")
	}
}

func TestMarkExhaustedBlocksUntilReset(t *testing.T) {
	t.Parallel()

	clock := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	now := &clock
	g := NewGuard(10_000, nil, func() time.Time { return *now })

	g.MarkExhausted(clock.Add(2 * time.Hour))

	if err := g.Reserve(CallDetails); !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted while marked, got %v", err)
	}

	clock = clock.Add(3 * time.Hour)
	if err := g.Reserve(CallDetails); err != nil {
		t.Fatalf("expected reserve to pass after reset, got %v", err)
	}
}

func TestCountersResetOnNewQuotaDay(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("US/Pacific")
	if err != nil {
		t.Skipf("tz database unavailable: %v", err)
	}

	clock := time.Date(2025, 6, 10, 23, 0, 0, 0, loc)
	now := &clock
	g := NewGuard(100, nil, func() time.Time { return *now })

	g.Commit(CallSearch)
	if err := g.Reserve(CallSearch); !errors.Is(err, ErrExhausted) {
		t.Fatalf("budget should be spent, got %v", err)
	}

	clock = clock.Add(2 * time.Hour)
	if err := g.Reserve(CallSearch); err != nil {
		t.Fatalf("counters should reset on the provider's new day: %v", err)
	}
	if used := g.Snapshot().UnitsUsed; used != 0 {
		t.Fatalf("expected fresh counters, got %d units", used)
	}
}

func TestNextResetIsProviderMidnight(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("US/Pacific")
	if err != nil {
		t.Skipf("tz database unavailable: %v", err)
	}

	g := NewGuard(100, nil, fixedClock(time.Date(2025, 6, 10, 15, 30, 0, 0, loc)))

	reset := g.NextReset()
	want := time.Date(2025, 6, 11, 0, 0, 0, 0, loc)
	if !reset.Equal(want) {
		t.Fatalf("expected reset at %v, got %v", want, reset)
	}
}
