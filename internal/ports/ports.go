package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"VideoCurator/internal/domain"
)

// InferenceClient sends one prompt to the external LLM service and returns
// the raw completion text. Callers extract structured data defensively.
type InferenceClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CandidateEvaluator scores one candidate and renders the accept/reject verdict.
type CandidateEvaluator interface {
	Evaluate(ctx context.Context, cand domain.CandidateDetails) (domain.Evaluation, error)
}

// RunRepository persists curation run lifecycle rows.
type RunRepository interface {
	Create(ctx context.Context, run domain.CurationRun) error
	Get(ctx context.Context, id uuid.UUID) (*domain.CurationRun, error)
	// Finish moves a run to a terminal status, recording counters and the
	// completion time. Implementations refuse non-monotonic transitions.
	Finish(ctx context.Context, id uuid.UUID, status domain.RunStatus, evaluated, accepted int, errorMessage string, completedAt time.Time) error
	// RunningSince returns runs still marked running that started before the cutoff.
	RunningSince(ctx context.Context, cutoff time.Time) ([]domain.CurationRun, error)
}

// KnowledgeRepository persists accepted videos and answers the saturation
// queries the evaluator's coverage dimensions depend on.
type KnowledgeRepository interface {
	ExistsBySourceURL(ctx context.Context, sourceURL string) (bool, error)
	// Insert stores the record; it reports false when the source URL was
	// already present and the insert was a no-op.
	Insert(ctx context.Context, rec domain.KnowledgeRecord) (bool, error)
	CountByTechnique(ctx context.Context, technique string) (int, error)
	CountByTechniqueAndInstructor(ctx context.Context, technique, instructor string) (int, error)
	ActiveRecords(ctx context.Context) ([]domain.KnowledgeRecord, error)
	MarkUnavailable(ctx context.Context, id uuid.UUID) error
}

// FeedbackRepository appends immutable feedback events and serves the
// range queries the adjustment and aggregation paths need.
type FeedbackRepository interface {
	Append(ctx context.Context, ev domain.FeedbackEvent) error
	UserTechniqueEvents(ctx context.Context, userID, technique string, since time.Time) ([]domain.FeedbackEvent, error)
	InstructorOrTechniqueEvents(ctx context.Context, instructor, technique string, since time.Time) ([]domain.FeedbackEvent, error)
	EventsBetween(ctx context.Context, from, to time.Time) ([]domain.FeedbackEvent, error)
}

// InstructorRepository reads and writes per-instructor aggregate rows.
type InstructorRepository interface {
	// Get returns nil when the instructor has no row yet.
	Get(ctx context.Context, instructor string) (*domain.InstructorPerformance, error)
	Upsert(ctx context.Context, perf domain.InstructorPerformance) error
}

// ProfileRepository reads and writes per-user learning profiles.
type ProfileRepository interface {
	// Get returns nil when the user has no profile yet.
	Get(ctx context.Context, userID string) (*domain.UserLearningProfile, error)
	Upsert(ctx context.Context, profile domain.UserLearningProfile) error
}

// OutcomeRepository stores write-once recommendation outcomes and their
// evaluation results.
type OutcomeRepository interface {
	Insert(ctx context.Context, o domain.RecommendationOutcome) error
	Get(ctx context.Context, id uuid.UUID) (*domain.RecommendationOutcome, error)
	UnevaluatedSince(ctx context.Context, since time.Time) ([]domain.RecommendationOutcome, error)
	SaveEvaluation(ctx context.Context, o domain.RecommendationOutcome) error
	EvaluatedByVariant(ctx context.Context, variant string) ([]domain.RecommendationOutcome, error)
}

// ExperimentRepository stores A/B experiments and their verdicts.
type ExperimentRepository interface {
	Create(ctx context.Context, exp domain.ABTestExperiment) error
	GetByName(ctx context.Context, name string) (*domain.ABTestExperiment, error)
	Complete(ctx context.Context, exp domain.ABTestExperiment) error
}

// MetricsRepository persists the daily platform-wide feedback aggregate.
type MetricsRepository interface {
	Upsert(ctx context.Context, m domain.DailyMetrics) error
}

// RunLocker is the advisory lock that keeps two curation runs from
// running against the store at once.
type RunLocker interface {
	// Acquire reports false when another run already holds the slot.
	Acquire(ctx context.Context, slot string, runID uuid.UUID) (bool, error)
	Release(ctx context.Context, slot string) error
	// ForceReleaseByRun frees whatever slot a recovered run still holds.
	ForceReleaseByRun(ctx context.Context, runID uuid.UUID) error
}

// TxRunner executes fn atomically; repository calls made with the ctx it
// passes participate in the same store transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Notifier delivers operator messages; failures are logged, never escalated.
type Notifier interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// Scheduler drives the recurring jobs (curation, sweep, metrics, outcomes).
type Scheduler interface {
	Add(spec, name string, job func()) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
