// Package usecase orchestrates the curation workflows: discovery runs,
// stuck-run recovery, and the recurring job schedule.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"VideoCurator/internal/catalog"
	"VideoCurator/internal/config"
	"VideoCurator/internal/domain"
	"VideoCurator/internal/ports"
	"VideoCurator/internal/quota"
)

// runSlot is the single global lock slot; at most one curation run at a time.
const runSlot = "curation"

// ErrRunInProgress reports a refused start because another run holds the slot.
var ErrRunInProgress = errors.New("curation run already in progress")

// CurationDeps wires all driven adapters into the run controller.
type CurationDeps struct {
	Catalogs  *catalog.Registry
	Evaluator ports.CandidateEvaluator
	Knowledge ports.KnowledgeRepository
	Runs      ports.RunRepository
	Locker    ports.RunLocker
	Sources   []config.SourceConfig
	Pace      time.Duration
	Logger    *slog.Logger
	Now       func() time.Time
}

// Curation drives one complete discovery run: search, evaluate, ingest.
type Curation struct {
	catalogs  *catalog.Registry
	evaluator ports.CandidateEvaluator
	knowledge ports.KnowledgeRepository
	runs      ports.RunRepository
	locker    ports.RunLocker
	sources   []config.SourceConfig
	pace      time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewCuration constructs the run controller.
func NewCuration(deps CurationDeps) *Curation {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Curation{
		catalogs:  deps.Catalogs,
		evaluator: deps.Evaluator,
		knowledge: deps.Knowledge,
		runs:      deps.Runs,
		locker:    deps.Locker,
		sources:   deps.Sources,
		pace:      deps.Pace,
		logger:    deps.Logger,
		now:       now,
	}
}

// Run executes one curation run end to end. Whatever happens inside, the
// run row leaves with a terminal status: quota exhaustion completes the
// run partially, store and programming errors fail it. Only a refused
// start (slot held) returns without creating a row.
func (c *Curation) Run(ctx context.Context, trigger domain.RunTrigger) (domain.CurationRun, error) {
	run := domain.CurationRun{
		ID:        uuid.New(),
		Trigger:   trigger,
		Status:    domain.RunRunning,
		StartedAt: c.now(),
	}

	held, err := c.locker.Acquire(ctx, runSlot, run.ID)
	if err != nil {
		return domain.CurationRun{}, fmt.Errorf("acquire run slot: %w", err)
	}
	if !held {
		c.logger.Warn("curation run refused, slot already held", "trigger", string(trigger))
		return domain.CurationRun{}, ErrRunInProgress
	}
	defer func() {
		if err := c.locker.Release(ctx, runSlot); err != nil {
			// The recovery sweep force-releases slots of dead runs.
			c.logger.Error("run slot release failed", "run_id", run.ID, "error", err)
		}
	}()

	if err := c.runs.Create(ctx, run); err != nil {
		return domain.CurationRun{}, fmt.Errorf("create run row: %w", err)
	}
	c.logger.Info("curation run started", "run_id", run.ID, "trigger", string(trigger))

	evaluated, accepted, runErr := c.discover(ctx)

	completedAt := c.now()
	status := domain.RunCompleted
	message := ""
	switch {
	case runErr == nil:
	case errors.Is(runErr, quota.ErrExhausted):
		message = "quota exhausted: partial run"
	default:
		status = domain.RunFailed
		message = runErr.Error()
	}

	if err := c.runs.Finish(ctx, run.ID, status, evaluated, accepted, message, completedAt); err != nil {
		c.logger.Error("run finish failed, sweep will recover", "run_id", run.ID, "error", err)
		return domain.CurationRun{}, fmt.Errorf("finish run: %w", err)
	}

	run.Status = status
	run.CompletedAt = &completedAt
	run.CandidatesEvaluated = evaluated
	run.CandidatesAccepted = accepted
	run.ErrorMessage = message

	c.logger.Info("curation run finished",
		"run_id", run.ID,
		"status", string(status),
		"evaluated", evaluated,
		"accepted", accepted,
	)

	if status == domain.RunFailed {
		return run, runErr
	}
	return run, nil
}

// discover walks every configured source and query. Quota exhaustion and
// store errors bubble up; transient provider failures are contained here.
func (c *Curation) discover(ctx context.Context) (evaluated, accepted int, err error) {
	for _, src := range c.sources {
		provider, rErr := c.catalogs.Resolve(src.Provider)
		if rErr != nil {
			return evaluated, accepted, rErr
		}

		for _, query := range src.Queries {
			n, a, qErr := c.processQuery(ctx, provider, src, query)
			evaluated += n
			accepted += a
			if qErr != nil {
				return evaluated, accepted, qErr
			}
			if pErr := c.pause(ctx); pErr != nil {
				return evaluated, accepted, pErr
			}
		}
	}
	return evaluated, accepted, nil
}

func (c *Curation) processQuery(ctx context.Context, provider catalog.Provider, src config.SourceConfig, query string) (evaluated, accepted int, err error) {
	refs, err := provider.Search(ctx, catalog.Request{Query: query, MaxResults: src.MaxResults})
	if err != nil {
		if errors.Is(err, quota.ErrExhausted) {
			return 0, 0, err
		}
		c.logger.Warn("search failed, skipping query",
			"source", src.Name, "query", query, "error", err)
		return 0, 0, nil
	}

	for _, ref := range refs {
		if pErr := c.pause(ctx); pErr != nil {
			return evaluated, accepted, pErr
		}

		details, dErr := provider.Details(ctx, ref.VideoID)
		if dErr != nil {
			if errors.Is(dErr, quota.ErrExhausted) {
				return evaluated, accepted, dErr
			}
			c.logger.Warn("details fetch failed, skipping candidate",
				"video_id", ref.VideoID, "error", dErr)
			continue
		}

		ev, eErr := c.evaluator.Evaluate(ctx, details)
		if eErr != nil {
			return evaluated, accepted, fmt.Errorf("evaluate %s: %w", ref.VideoID, eErr)
		}
		evaluated++

		if !ev.Accepted() {
			c.logger.Debug("candidate rejected", "video_id", ref.VideoID, "reason", ev.Reason)
			continue
		}

		inserted, iErr := c.knowledge.Insert(ctx, recordFrom(details, ev, c.now()))
		if iErr != nil {
			return evaluated, accepted, fmt.Errorf("ingest %s: %w", ref.VideoID, iErr)
		}
		if !inserted {
			c.logger.Info("accepted candidate already stored", "video_id", ref.VideoID)
			continue
		}

		accepted++
		c.logger.Info("candidate accepted",
			"video_id", ref.VideoID,
			"score", ev.FinalScore,
			"technique", ev.TechniqueName,
		)
	}
	return evaluated, accepted, nil
}

// pause inserts the configured inter-call delay, returning early when the
// context dies.
func (c *Curation) pause(ctx context.Context) error {
	if c.pace <= 0 {
		return nil
	}
	timer := time.NewTimer(c.pace)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func recordFrom(details domain.CandidateDetails, ev domain.Evaluation, now time.Time) domain.KnowledgeRecord {
	return domain.KnowledgeRecord{
		ID:              uuid.New(),
		SourceURL:       details.SourceURL(),
		Title:           details.Title,
		InstructorName:  details.ChannelTitle,
		TechniqueName:   ev.TechniqueName,
		DurationSeconds: details.DurationSeconds,
		Dimensions:      ev.Dimensions,
		FinalScore:      ev.FinalScore,
		BoostsApplied:   ev.BoostsApplied,
		Reason:          ev.Reason,
		Status:          domain.RecordActive,
		CreatedAt:       now,
	}
}
