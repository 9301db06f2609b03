// Package quota predicts and records exhaustion of the external video
// catalog's daily call budget so the client can fail fast instead of
// burning requests that the provider will refuse anyway.
package quota

import (
	"errors"
	"sync"
	"time"
)

// ErrExhausted signals that further catalog calls will fail until the
// provider's quota resets. Callers detect it with errors.Is.
var ErrExhausted = errors.New("catalog quota exhausted")

// CallType names a metered catalog operation. Search requests cost far more
// units than detail lookups under the provider's pricing.
type CallType string

const (
	CallSearch  CallType = "search"
	CallDetails CallType = "details"
)

// DefaultCosts mirrors the provider's published unit costs per call type.
var DefaultCosts = map[CallType]int{
	CallSearch:  100,
	CallDetails: 1,
}

// resetZone is the timezone the provider resets daily quotas in.
const resetZone = "US/Pacific"

// Guard tracks spent units per call type inside the provider's quota day
// and refuses calls once the next one would cross the budget or while a
// provider-reported exhaustion has not reached its reset time.
type Guard struct {
	mu             sync.Mutex
	budget         int
	costs          map[CallType]int
	used           map[CallType]int
	day            time.Time
	exhaustedUntil time.Time
	now            func() time.Time
	loc            *time.Location
}

// Usage is a point-in-time snapshot for logging and run summaries.
type Usage struct {
	Budget    int
	UnitsUsed int
	ByType    map[CallType]int
	Exhausted bool
	ResetAt   time.Time
}

// NewGuard builds a guard with the given daily unit budget. A nil now
// function defaults to time.Now; unknown call types cost one unit.
func NewGuard(budget int, costs map[CallType]int, now func() time.Time) *Guard {
	if now == nil {
		now = time.Now
	}
	if costs == nil {
		costs = DefaultCosts
	}
	loc, err := time.LoadLocation(resetZone)
	if err != nil {
		loc = time.UTC
	}
	g := &Guard{
		budget: budget,
		costs:  costs,
		used:   map[CallType]int{},
		now:    now,
		loc:    loc,
	}
	g.day = g.quotaDay(now())
	return g
}

// Reserve checks whether one call of the given type fits the remaining
// budget. It returns ErrExhausted when the call would cross the budget or
// while a recorded provider exhaustion is still in force.
func (g *Guard) Reserve(t CallType) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.rollDay(now)

	if now.Before(g.exhaustedUntil) {
		return ErrExhausted
	}
	if g.total()+g.cost(t) > g.budget {
		g.exhaustedUntil = g.nextReset(now)
		return ErrExhausted
	}
	return nil
}

// Commit records one successful call of the given type.
func (g *Guard) Commit(t CallType) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.rollDay(g.now())
	g.used[t]++
}

// MarkExhausted records a provider-reported exhaustion lasting until reset.
// A zero reset time falls back to the provider's next daily reset.
func (g *Guard) MarkExhausted(reset time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if reset.IsZero() {
		reset = g.nextReset(g.now())
	}
	if reset.After(g.exhaustedUntil) {
		g.exhaustedUntil = reset
	}
}

// NextReset returns when the provider's quota day rolls over next.
func (g *Guard) NextReset() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nextReset(g.now())
}

// Snapshot reports usage for the current quota day.
func (g *Guard) Snapshot() Usage {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.rollDay(now)

	byType := make(map[CallType]int, len(g.used))
	for t, n := range g.used {
		byType[t] = n
	}
	return Usage{
		Budget:    g.budget,
		UnitsUsed: g.total(),
		ByType:    byType,
		Exhausted: now.Before(g.exhaustedUntil),
		ResetAt:   g.exhaustedUntil,
	}
}

func (g *Guard) total() int {
	units := 0
	for t, n := range g.used {
		units += n * g.cost(t)
	}
	return units
}

func (g *Guard) cost(t CallType) int {
	if c, ok := g.costs[t]; ok {
		return c
	}
	return 1
}

// rollDay clears counters once the provider's quota day changes. The
// exhaustion marker is kept: it carries its own expiry.
func (g *Guard) rollDay(now time.Time) {
	day := g.quotaDay(now)
	if day.Equal(g.day) {
		return
	}
	g.day = day
	g.used = map[CallType]int{}
}

func (g *Guard) quotaDay(now time.Time) time.Time {
	local := now.In(g.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, g.loc)
}

func (g *Guard) nextReset(now time.Time) time.Time {
	return g.quotaDay(now).AddDate(0, 0, 1)
}
