// Package outcome scores delivered recommendations across three time
// horizons, explains the result, and compares algorithm variants.
package outcome

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"

	"VideoCurator/internal/domain"
	"VideoCurator/internal/ports"
)

const (
	// Watch time beyond five minutes earns no extra immediate credit.
	maxWatchSeconds = 300

	recentWindow = 24 * time.Hour

	weightImmediate = 0.30
	weightShortTerm = 0.30
	weightLongTerm  = 0.40
)

// ErrAlreadyEvaluated marks an outcome whose scores were written before.
// Outcome rows are write-once.
var ErrAlreadyEvaluated = errors.New("outcome already evaluated")

// EvaluatorDeps wires the stores the outcome evaluator reads and writes.
type EvaluatorDeps struct {
	Outcomes    ports.OutcomeRepository
	Experiments ports.ExperimentRepository
	Logger      *slog.Logger
	Now         func() time.Time
}

// Evaluator turns raw interaction signals into horizon scores and A/B verdicts.
type Evaluator struct {
	outcomes    ports.OutcomeRepository
	experiments ports.ExperimentRepository
	logger      *slog.Logger
	now         func() time.Time
}

// NewEvaluator constructs the outcome evaluator.
func NewEvaluator(deps EvaluatorDeps) *Evaluator {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Evaluator{
		outcomes:    deps.Outcomes,
		experiments: deps.Experiments,
		logger:      deps.Logger,
		now:         now,
	}
}

// RecordDelivery registers a delivered recommendation so its signals can be
// evaluated later. The delivery layer calls this at send time with the
// score the recommender predicted.
func (e *Evaluator) RecordDelivery(ctx context.Context, o domain.RecommendationOutcome) (domain.RecommendationOutcome, error) {
	if o.UserID == "" || o.VideoID == "" {
		return domain.RecommendationOutcome{}, errors.New("user id and video id are required")
	}
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = e.now()
	}

	if err := e.outcomes.Insert(ctx, o); err != nil {
		return domain.RecommendationOutcome{}, fmt.Errorf("insert outcome: %w", err)
	}
	return o, nil
}

// EvaluateOutcome scores one outcome and persists the breakdown.
func (e *Evaluator) EvaluateOutcome(ctx context.Context, id uuid.UUID) (domain.RecommendationOutcome, domain.Attribution, error) {
	o, err := e.outcomes.Get(ctx, id)
	if err != nil {
		return domain.RecommendationOutcome{}, domain.Attribution{}, fmt.Errorf("load outcome: %w", err)
	}
	if o == nil {
		return domain.RecommendationOutcome{}, domain.Attribution{}, fmt.Errorf("outcome %s not found", id)
	}
	if o.Evaluated() {
		return domain.RecommendationOutcome{}, domain.Attribution{}, ErrAlreadyEvaluated
	}

	scoreOutcome(o)
	now := e.now()
	o.EvaluatedAt = &now

	if err := e.outcomes.SaveEvaluation(ctx, *o); err != nil {
		return domain.RecommendationOutcome{}, domain.Attribution{}, fmt.Errorf("save evaluation: %w", err)
	}

	e.logger.Info("outcome evaluated",
		"outcome_id", o.ID,
		"overall_quality", o.OverallQuality,
		"prediction_accuracy", o.PredictionAccuracy,
	)
	return *o, Attribute(*o), nil
}

// EvaluateRecent scores every outcome recorded in the last day that has no
// evaluation yet. Individual failures are logged and skipped so one bad row
// cannot stall the batch.
func (e *Evaluator) EvaluateRecent(ctx context.Context) (int, error) {
	since := e.now().Add(-recentWindow)
	pending, err := e.outcomes.UnevaluatedSince(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("list unevaluated outcomes: %w", err)
	}

	evaluated := 0
	for _, o := range pending {
		scoreOutcome(&o)
		now := e.now()
		o.EvaluatedAt = &now
		if err := e.outcomes.SaveEvaluation(ctx, o); err != nil {
			e.logger.Error("outcome evaluation failed", "outcome_id", o.ID, "error", err)
			continue
		}
		evaluated++
	}

	e.logger.Info("outcome batch evaluated", "pending", len(pending), "evaluated", evaluated)
	return evaluated, nil
}

// StartExperiment registers an active A/B comparison between two variants.
// Experiment names are unique; settling happens later via CompareVariants.
func (e *Evaluator) StartExperiment(ctx context.Context, name, control, treatment string) (domain.ABTestExperiment, error) {
	if name == "" || control == "" || treatment == "" {
		return domain.ABTestExperiment{}, errors.New("experiment needs a name and two variants")
	}
	if control == treatment {
		return domain.ABTestExperiment{}, errors.New("control and treatment variants must differ")
	}

	existing, err := e.experiments.GetByName(ctx, name)
	if err != nil {
		return domain.ABTestExperiment{}, fmt.Errorf("check experiment: %w", err)
	}
	if existing != nil {
		return domain.ABTestExperiment{}, fmt.Errorf("experiment %q already exists", name)
	}

	exp := domain.ABTestExperiment{
		ID:               uuid.New(),
		Name:             name,
		ControlVariant:   control,
		TreatmentVariant: treatment,
		Status:           domain.ExperimentActive,
		CreatedAt:        e.now(),
	}
	if err := e.experiments.Create(ctx, exp); err != nil {
		return domain.ABTestExperiment{}, fmt.Errorf("create experiment: %w", err)
	}

	e.logger.Info("experiment started",
		"experiment", name,
		"control", control,
		"treatment", treatment,
	)
	return exp, nil
}

// CompareVariants aggregates evaluated outcomes per experiment arm and
// declares a winner only on strictly higher mean engagement; equal means or
// an empty arm leave the experiment inconclusive.
func (e *Evaluator) CompareVariants(ctx context.Context, name string) (domain.ABTestExperiment, error) {
	exp, err := e.experiments.GetByName(ctx, name)
	if err != nil {
		return domain.ABTestExperiment{}, fmt.Errorf("load experiment: %w", err)
	}
	if exp == nil {
		return domain.ABTestExperiment{}, fmt.Errorf("experiment %q not found", name)
	}
	if exp.Status == domain.ExperimentCompleted {
		return domain.ABTestExperiment{}, fmt.Errorf("experiment %q already completed", name)
	}

	control, err := e.aggregateVariant(ctx, exp.ControlVariant)
	if err != nil {
		return domain.ABTestExperiment{}, err
	}
	treatment, err := e.aggregateVariant(ctx, exp.TreatmentVariant)
	if err != nil {
		return domain.ABTestExperiment{}, err
	}

	exp.ControlEngagement = control.engagement
	exp.ControlSatisfaction = control.satisfaction
	exp.ControlSamples = control.samples
	exp.TreatmentEngagement = treatment.engagement
	exp.TreatmentSatisfaction = treatment.satisfaction
	exp.TreatmentSamples = treatment.samples

	switch {
	case control.samples == 0 || treatment.samples == 0:
		exp.Winner = domain.WinnerInconclusive
	case treatment.engagement > control.engagement:
		exp.Winner = domain.WinnerTreatment
	case control.engagement > treatment.engagement:
		exp.Winner = domain.WinnerControl
	default:
		exp.Winner = domain.WinnerInconclusive
	}

	exp.Status = domain.ExperimentCompleted
	now := e.now()
	exp.CompletedAt = &now

	if err := e.experiments.Complete(ctx, *exp); err != nil {
		return domain.ABTestExperiment{}, fmt.Errorf("complete experiment: %w", err)
	}

	e.logger.Info("experiment compared",
		"experiment", exp.Name,
		"winner", string(exp.Winner),
		"control_engagement", exp.ControlEngagement,
		"treatment_engagement", exp.TreatmentEngagement,
	)
	return *exp, nil
}

type variantAggregate struct {
	engagement   float64
	satisfaction float64
	samples      int
}

func (e *Evaluator) aggregateVariant(ctx context.Context, variant string) (variantAggregate, error) {
	rows, err := e.outcomes.EvaluatedByVariant(ctx, variant)
	if err != nil {
		return variantAggregate{}, fmt.Errorf("load outcomes for %s: %w", variant, err)
	}

	agg := variantAggregate{samples: len(rows)}
	if len(rows) == 0 {
		return agg, nil
	}

	engagement := make([]float64, 0, len(rows))
	satisfaction := make([]float64, 0, len(rows))
	for _, o := range rows {
		engagement = append(engagement, o.OverallQuality)
		satisfaction = append(satisfaction, o.LongTermScore)
	}

	if agg.engagement, err = stats.Mean(engagement); err != nil {
		return variantAggregate{}, fmt.Errorf("mean engagement for %s: %w", variant, err)
	}
	if agg.satisfaction, err = stats.Mean(satisfaction); err != nil {
		return variantAggregate{}, fmt.Errorf("mean satisfaction for %s: %w", variant, err)
	}
	return agg, nil
}

func scoreOutcome(o *domain.RecommendationOutcome) {
	o.ImmediateScore = immediateScore(o.Signals)
	o.ShortTermScore = shortTermScore(o.Signals)
	o.LongTermScore = longTermScore(o.Signals)
	o.OverallQuality = overallQuality(o.ImmediateScore, o.ShortTermScore, o.LongTermScore)
	o.PredictionAccuracy = predictionAccuracy(o.PredictedEngagement, o.OverallQuality)
}

func overallQuality(immediate, shortTerm, longTerm float64) float64 {
	return weightImmediate*immediate + weightShortTerm*shortTerm + weightLongTerm*longTerm
}

func immediateScore(s domain.InteractionSignals) float64 {
	score := 0.0
	if s.Clicked {
		score += 40
	}
	watch := s.WatchSeconds
	if watch > maxWatchSeconds {
		watch = maxWatchSeconds
	}
	if watch > 0 {
		score += float64(watch) / maxWatchSeconds * 40
	}
	if s.Completed {
		score += 20
	}
	return clamp(score, 0, 100)
}

func shortTermScore(s domain.InteractionSignals) float64 {
	score := 50.0
	if s.Saved {
		score += 30
	}
	if s.Shared {
		score += 20
	}
	if s.ThumbsUp {
		score += 15
	}
	if s.ThumbsDown {
		score -= 30
	}
	rewatch := 10 * float64(s.RewatchCount)
	if rewatch > 20 {
		rewatch = 20
	}
	score += rewatch
	return clamp(score, 0, 100)
}

func longTermScore(s domain.InteractionSignals) float64 {
	score := 50.0
	if s.ProblemSolved {
		score += 40
	}
	if s.MarkedHelpful {
		score += 25
	}
	if !s.RepeatQuery {
		score += 15
	}
	switch s.FollowUp {
	case domain.FollowUpPositive:
		score += 10
	case domain.FollowUpNegative:
		score -= 20
	}
	return clamp(score, 0, 100)
}

func predictionAccuracy(predicted, overall float64) float64 {
	acc := 100 - math.Abs(predicted-overall)
	if acc < 0 {
		return 0
	}
	return acc
}

// Attribute renders the human-readable explanation lists for an evaluated
// outcome. The rules are deliberately coarse; they feed operator review,
// not scoring.
func Attribute(o domain.RecommendationOutcome) domain.Attribution {
	var a domain.Attribution
	s := o.Signals

	if o.OverallQuality >= 70 && s.Completed {
		a.Worked = append(a.Worked, "high completion correlates with relevance")
	}
	if s.ProblemSolved {
		a.Worked = append(a.Worked, "the stated problem was solved")
	}
	if s.Saved || s.Shared {
		a.Replicate = append(a.Replicate, "user saved or shared the video, repeat this instructor and format")
	}
	if s.RewatchCount >= 2 {
		a.Replicate = append(a.Replicate, "multiple rewatches suggest dense drillable material")
	}
	if s.ThumbsDown {
		a.Avoid = append(a.Avoid, "explicit downvote, deprioritize similar material for this user")
	}
	if !s.Clicked {
		a.Avoid = append(a.Avoid, "never clicked, the presentation failed to land")
	}
	if s.RepeatQuery {
		a.Avoid = append(a.Avoid, "user re-asked the same problem afterwards")
	}
	if s.FollowUp == domain.FollowUpNegative {
		a.Avoid = append(a.Avoid, "negative follow-up sentiment")
	}

	return a
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
