package outcome

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"VideoCurator/internal/domain"
	"VideoCurator/internal/logging"
)

type memOutcomes struct {
	rows    map[uuid.UUID]domain.RecommendationOutcome
	saveErr map[uuid.UUID]error
}

func (m *memOutcomes) Insert(_ context.Context, o domain.RecommendationOutcome) error {
	if m.rows == nil {
		m.rows = map[uuid.UUID]domain.RecommendationOutcome{}
	}
	m.rows[o.ID] = o
	return nil
}

func (m *memOutcomes) Get(_ context.Context, id uuid.UUID) (*domain.RecommendationOutcome, error) {
	if o, ok := m.rows[id]; ok {
		return &o, nil
	}
	return nil, nil
}

func (m *memOutcomes) UnevaluatedSince(_ context.Context, since time.Time) ([]domain.RecommendationOutcome, error) {
	var out []domain.RecommendationOutcome
	for _, o := range m.rows {
		if !o.Evaluated() && !o.CreatedAt.Before(since) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memOutcomes) SaveEvaluation(_ context.Context, o domain.RecommendationOutcome) error {
	if err := m.saveErr[o.ID]; err != nil {
		return err
	}
	m.rows[o.ID] = o
	return nil
}

func (m *memOutcomes) EvaluatedByVariant(_ context.Context, variant string) ([]domain.RecommendationOutcome, error) {
	var out []domain.RecommendationOutcome
	for _, o := range m.rows {
		if o.Evaluated() && o.AlgorithmVariant == variant {
			out = append(out, o)
		}
	}
	return out, nil
}

type memExperiments struct {
	rows map[string]domain.ABTestExperiment
}

func (m *memExperiments) Create(_ context.Context, exp domain.ABTestExperiment) error {
	if m.rows == nil {
		m.rows = map[string]domain.ABTestExperiment{}
	}
	m.rows[exp.Name] = exp
	return nil
}

func (m *memExperiments) GetByName(_ context.Context, name string) (*domain.ABTestExperiment, error) {
	if exp, ok := m.rows[name]; ok {
		return &exp, nil
	}
	return nil, nil
}

func (m *memExperiments) Complete(_ context.Context, exp domain.ABTestExperiment) error {
	m.rows[exp.Name] = exp
	return nil
}

var testNow = time.Date(2026, time.August, 1, 8, 0, 0, 0, time.UTC)

func newTestEvaluator(outcomes *memOutcomes, experiments *memExperiments) *Evaluator {
	return NewEvaluator(EvaluatorDeps{
		Outcomes:    outcomes,
		Experiments: experiments,
		Logger:      logging.NewNop(),
		Now:         func() time.Time { return testNow },
	})
}

func almost(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestOverallQualityWeighting(t *testing.T) {
	t.Parallel()

	if got := overallQuality(80, 60, 40); !almost(got, 58) {
		t.Fatalf("overallQuality(80,60,40) = %v, want 58", got)
	}
	if got := overallQuality(100, 100, 100); !almost(got, 100) {
		t.Fatalf("overallQuality(100,100,100) = %v, want 100", got)
	}
	if got := overallQuality(0, 0, 0); !almost(got, 0) {
		t.Fatalf("overallQuality(0,0,0) = %v, want 0", got)
	}
}

func TestHorizonScoresClampAtBounds(t *testing.T) {
	t.Parallel()

	everything := domain.InteractionSignals{
		Clicked:       true,
		WatchSeconds:  4000,
		Completed:     true,
		Saved:         true,
		Shared:        true,
		ThumbsUp:      true,
		RewatchCount:  5,
		ProblemSolved: true,
		MarkedHelpful: true,
		FollowUp:      domain.FollowUpPositive,
	}
	if got := immediateScore(everything); got != 100 {
		t.Fatalf("immediate = %v, want 100", got)
	}
	if got := shortTermScore(everything); got != 100 {
		t.Fatalf("short term = %v, want 100", got)
	}
	if got := longTermScore(everything); got != 100 {
		t.Fatalf("long term = %v, want 100", got)
	}

	hostile := domain.InteractionSignals{
		ThumbsDown:  true,
		RepeatQuery: true,
		FollowUp:    domain.FollowUpNegative,
	}
	if got := immediateScore(hostile); got != 0 {
		t.Fatalf("immediate = %v, want 0", got)
	}
	if got := shortTermScore(hostile); got != 20 {
		t.Fatalf("short term = %v, want 20", got)
	}
	if got := longTermScore(hostile); got != 30 {
		t.Fatalf("long term = %v, want 30", got)
	}
}

func TestPredictionAccuracyFloorsAtZero(t *testing.T) {
	t.Parallel()

	cases := []struct {
		predicted, overall, want float64
	}{
		{50, 50, 100},
		{70, 89.2, 80.8},
		{0, 100, 0},
		{100, 0, 0},
	}
	for _, tc := range cases {
		if got := predictionAccuracy(tc.predicted, tc.overall); !almost(got, tc.want) {
			t.Fatalf("predictionAccuracy(%v, %v) = %v, want %v", tc.predicted, tc.overall, got, tc.want)
		}
	}
}

func TestEvaluateOutcomePersistsBreakdown(t *testing.T) {
	t.Parallel()

	outcomes := &memOutcomes{}
	e := newTestEvaluator(outcomes, &memExperiments{})
	ctx := context.Background()

	rec, err := e.RecordDelivery(ctx, domain.RecommendationOutcome{
		UserID:              "u1",
		VideoID:             "vid1",
		AlgorithmVariant:    "control",
		PredictedEngagement: 70,
		Signals: domain.InteractionSignals{
			Clicked:       true,
			WatchSeconds:  180,
			Completed:     true,
			Saved:         true,
			ProblemSolved: true,
			FollowUp:      domain.FollowUpPositive,
		},
	})
	if err != nil {
		t.Fatalf("RecordDelivery error: %v", err)
	}

	o, attribution, err := e.EvaluateOutcome(ctx, rec.ID)
	if err != nil {
		t.Fatalf("EvaluateOutcome error: %v", err)
	}

	// clicked 40 + 180s of a 300s cap 24 + completed 20.
	if !almost(o.ImmediateScore, 84) {
		t.Fatalf("immediate = %v, want 84", o.ImmediateScore)
	}
	if !almost(o.ShortTermScore, 80) {
		t.Fatalf("short term = %v, want 80", o.ShortTermScore)
	}
	if !almost(o.LongTermScore, 100) {
		t.Fatalf("long term = %v, want 100", o.LongTermScore)
	}
	if !almost(o.OverallQuality, 89.2) {
		t.Fatalf("overall = %v, want 89.2", o.OverallQuality)
	}
	if !almost(o.PredictionAccuracy, 80.8) {
		t.Fatalf("accuracy = %v, want 80.8", o.PredictionAccuracy)
	}
	if !o.Evaluated() {
		t.Fatalf("expected evaluated_at set")
	}

	stored := outcomes.rows[rec.ID]
	if !stored.Evaluated() || !almost(stored.OverallQuality, 89.2) {
		t.Fatalf("breakdown not persisted: %+v", stored)
	}

	if len(attribution.Worked) != 2 {
		t.Fatalf("expected 2 worked notes, got %v", attribution.Worked)
	}
	if !strings.Contains(attribution.Worked[0], "high completion") {
		t.Fatalf("unexpected worked note: %v", attribution.Worked)
	}
	if len(attribution.Replicate) != 1 {
		t.Fatalf("expected 1 replicate note, got %v", attribution.Replicate)
	}
	if len(attribution.Avoid) != 0 {
		t.Fatalf("expected no avoid notes, got %v", attribution.Avoid)
	}
}

func TestEvaluateOutcomeRefusesSecondPass(t *testing.T) {
	t.Parallel()

	outcomes := &memOutcomes{}
	e := newTestEvaluator(outcomes, &memExperiments{})
	ctx := context.Background()

	rec, err := e.RecordDelivery(ctx, domain.RecommendationOutcome{UserID: "u1", VideoID: "vid1"})
	if err != nil {
		t.Fatalf("RecordDelivery error: %v", err)
	}
	if _, _, err := e.EvaluateOutcome(ctx, rec.ID); err != nil {
		t.Fatalf("first evaluation error: %v", err)
	}

	_, _, err = e.EvaluateOutcome(ctx, rec.ID)
	if !errors.Is(err, ErrAlreadyEvaluated) {
		t.Fatalf("expected ErrAlreadyEvaluated, got %v", err)
	}
}

func TestEvaluateRecentToleratesRowFailures(t *testing.T) {
	t.Parallel()

	outcomes := &memOutcomes{}
	e := newTestEvaluator(outcomes, &memExperiments{})
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		rec, err := e.RecordDelivery(ctx, domain.RecommendationOutcome{
			UserID:    "u1",
			VideoID:   "vid",
			CreatedAt: testNow.Add(-2 * time.Hour),
		})
		if err != nil {
			t.Fatalf("RecordDelivery error: %v", err)
		}
		ids = append(ids, rec.ID)
	}
	outcomes.saveErr = map[uuid.UUID]error{ids[1]: errors.New("row gone")}

	evaluated, err := e.EvaluateRecent(ctx)
	if err != nil {
		t.Fatalf("EvaluateRecent error: %v", err)
	}
	if evaluated != 2 {
		t.Fatalf("expected 2 evaluated, got %d", evaluated)
	}
	if outcomes.rows[ids[1]].Evaluated() {
		t.Fatalf("failed row must stay unevaluated")
	}
}

func TestEvaluateRecentIgnoresOldOutcomes(t *testing.T) {
	t.Parallel()

	outcomes := &memOutcomes{}
	e := newTestEvaluator(outcomes, &memExperiments{})
	ctx := context.Background()

	if _, err := e.RecordDelivery(ctx, domain.RecommendationOutcome{
		UserID:    "u1",
		VideoID:   "vid",
		CreatedAt: testNow.Add(-48 * time.Hour),
	}); err != nil {
		t.Fatalf("RecordDelivery error: %v", err)
	}

	evaluated, err := e.EvaluateRecent(ctx)
	if err != nil {
		t.Fatalf("EvaluateRecent error: %v", err)
	}
	if evaluated != 0 {
		t.Fatalf("expected old outcome ignored, evaluated %d", evaluated)
	}
}

func TestStartExperimentPersistsActive(t *testing.T) {
	t.Parallel()

	experiments := &memExperiments{}
	e := newTestEvaluator(&memOutcomes{}, experiments)
	ctx := context.Background()

	exp, err := e.StartExperiment(ctx, "ranker-v2", "control", "treatment")
	if err != nil {
		t.Fatalf("StartExperiment error: %v", err)
	}
	if exp.ID == uuid.Nil {
		t.Fatalf("expected generated experiment id")
	}
	if exp.Status != domain.ExperimentActive {
		t.Fatalf("expected active experiment, got %s", exp.Status)
	}
	if !exp.CreatedAt.Equal(testNow) {
		t.Fatalf("created at = %v, want %v", exp.CreatedAt, testNow)
	}

	stored := experiments.rows["ranker-v2"]
	if stored.ControlVariant != "control" || stored.TreatmentVariant != "treatment" {
		t.Fatalf("experiment not persisted: %+v", stored)
	}
}

func TestStartExperimentRejectsDuplicateName(t *testing.T) {
	t.Parallel()

	e := newTestEvaluator(&memOutcomes{}, &memExperiments{})
	ctx := context.Background()

	if _, err := e.StartExperiment(ctx, "ranker-v2", "control", "treatment"); err != nil {
		t.Fatalf("first StartExperiment error: %v", err)
	}
	if _, err := e.StartExperiment(ctx, "ranker-v2", "control", "shuffled"); err == nil {
		t.Fatalf("expected duplicate name to be rejected")
	}
}

func TestStartExperimentRejectsBadArms(t *testing.T) {
	t.Parallel()

	e := newTestEvaluator(&memOutcomes{}, &memExperiments{})
	ctx := context.Background()

	if _, err := e.StartExperiment(ctx, "same-arms", "control", "control"); err == nil {
		t.Fatalf("expected identical variants to be rejected")
	}
	if _, err := e.StartExperiment(ctx, "", "control", "treatment"); err == nil {
		t.Fatalf("expected blank name to be rejected")
	}
}

func seedVariant(t *testing.T, outcomes *memOutcomes, variant string, qualities ...float64) {
	t.Helper()
	evalAt := testNow.Add(-time.Hour)
	for _, q := range qualities {
		id := uuid.New()
		outcomes.rows[id] = domain.RecommendationOutcome{
			ID:               id,
			UserID:           "u",
			VideoID:          "v",
			AlgorithmVariant: variant,
			OverallQuality:   q,
			LongTermScore:    q,
			CreatedAt:        evalAt,
			EvaluatedAt:      &evalAt,
		}
	}
}

func TestCompareVariantsPicksStrictlyHigherMean(t *testing.T) {
	t.Parallel()

	outcomes := &memOutcomes{rows: map[uuid.UUID]domain.RecommendationOutcome{}}
	experiments := &memExperiments{}
	e := newTestEvaluator(outcomes, experiments)
	ctx := context.Background()

	if err := experiments.Create(ctx, domain.ABTestExperiment{
		ID:               uuid.New(),
		Name:             "ranker-v2",
		ControlVariant:   "control",
		TreatmentVariant: "treatment",
		Status:           domain.ExperimentActive,
	}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	seedVariant(t, outcomes, "control", 50, 50)
	seedVariant(t, outcomes, "treatment", 70, 70)

	exp, err := e.CompareVariants(ctx, "ranker-v2")
	if err != nil {
		t.Fatalf("CompareVariants error: %v", err)
	}

	if exp.Winner != domain.WinnerTreatment {
		t.Fatalf("expected treatment to win, got %s", exp.Winner)
	}
	if !almost(exp.ControlEngagement, 50) || !almost(exp.TreatmentEngagement, 70) {
		t.Fatalf("unexpected means: control %v treatment %v", exp.ControlEngagement, exp.TreatmentEngagement)
	}
	if exp.ControlSamples != 2 || exp.TreatmentSamples != 2 {
		t.Fatalf("unexpected samples: %d/%d", exp.ControlSamples, exp.TreatmentSamples)
	}
	if exp.Status != domain.ExperimentCompleted || exp.CompletedAt == nil {
		t.Fatalf("expected experiment completed, got %+v", exp)
	}

	stored := experiments.rows["ranker-v2"]
	if stored.Winner != domain.WinnerTreatment {
		t.Fatalf("verdict not persisted: %+v", stored)
	}
}

func TestCompareVariantsInconclusiveOnTie(t *testing.T) {
	t.Parallel()

	outcomes := &memOutcomes{rows: map[uuid.UUID]domain.RecommendationOutcome{}}
	experiments := &memExperiments{}
	e := newTestEvaluator(outcomes, experiments)
	ctx := context.Background()

	if err := experiments.Create(ctx, domain.ABTestExperiment{
		Name:             "tied",
		ControlVariant:   "control",
		TreatmentVariant: "treatment",
		Status:           domain.ExperimentActive,
	}); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	seedVariant(t, outcomes, "control", 60)
	seedVariant(t, outcomes, "treatment", 60)

	exp, err := e.CompareVariants(ctx, "tied")
	if err != nil {
		t.Fatalf("CompareVariants error: %v", err)
	}
	if exp.Winner != domain.WinnerInconclusive {
		t.Fatalf("expected inconclusive on tie, got %s", exp.Winner)
	}
}

func TestCompareVariantsInconclusiveOnEmptyArm(t *testing.T) {
	t.Parallel()

	outcomes := &memOutcomes{rows: map[uuid.UUID]domain.RecommendationOutcome{}}
	experiments := &memExperiments{}
	e := newTestEvaluator(outcomes, experiments)
	ctx := context.Background()

	if err := experiments.Create(ctx, domain.ABTestExperiment{
		Name:             "half-empty",
		ControlVariant:   "control",
		TreatmentVariant: "treatment",
		Status:           domain.ExperimentActive,
	}); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	seedVariant(t, outcomes, "control", 90)

	exp, err := e.CompareVariants(ctx, "half-empty")
	if err != nil {
		t.Fatalf("CompareVariants error: %v", err)
	}
	if exp.Winner != domain.WinnerInconclusive {
		t.Fatalf("expected inconclusive with an empty arm, got %s", exp.Winner)
	}
}
