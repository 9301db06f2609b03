package evaluate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"VideoCurator/internal/domain"
	"VideoCurator/internal/infrastructure/llm"
	"VideoCurator/internal/ports"
	"VideoCurator/internal/taxonomy"
)

const (
	// Candidates shorter than this are shorts or previews, not teaching
	// material, and are rejected before any inference spend.
	minDurationSeconds = 120

	minClassifiedQuality = 7.0

	acceptThreshold = 71.0

	feedbackWindow = 90 * 24 * time.Hour
	emergingWindow = 18 * 30 * 24 * time.Hour

	// unknownTechnique labels records whose content resolved to nothing in
	// the catalog and whose classification offered no name either.
	unknownTechnique = "unclassified"
)

// Dimension weights. They sum to 1.0 so the weighted dimensions land on
// the same 0-100 scale the boosts and threshold operate on.
const (
	weightAuthority    = 0.20
	weightTaxonomy     = 0.15
	weightCoverage     = 0.15
	weightUniqueValue  = 0.10
	weightUserFeedback = 0.15
	weightBeltFit      = 0.10
	weightEmerging     = 0.15
)

// EvaluatorDeps wires the stores and services the evaluator reads.
type EvaluatorDeps struct {
	Inference   ports.InferenceClient
	Knowledge   ports.KnowledgeRepository
	Instructors ports.InstructorRepository
	Feedback    ports.FeedbackRepository
	Taxonomy    *taxonomy.Catalog
	EliteTiers  map[string]string
	Logger      *slog.Logger
	Now         func() time.Time
}

var _ ports.CandidateEvaluator = (*Evaluator)(nil)

// Evaluator scores candidate videos across seven weighted dimensions and
// renders an accept/reject decision.
type Evaluator struct {
	inference   ports.InferenceClient
	knowledge   ports.KnowledgeRepository
	instructors ports.InstructorRepository
	feedback    ports.FeedbackRepository
	taxonomy    *taxonomy.Catalog
	eliteTiers  map[string]string
	logger      *slog.Logger
	now         func() time.Time
}

// NewEvaluator constructs the evaluator.
func NewEvaluator(deps EvaluatorDeps) *Evaluator {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Evaluator{
		inference:   deps.Inference,
		knowledge:   deps.Knowledge,
		instructors: deps.Instructors,
		feedback:    deps.Feedback,
		taxonomy:    deps.Taxonomy,
		eliteTiers:  deps.EliteTiers,
		logger:      deps.Logger,
		now:         now,
	}
}

// Evaluate runs the full pipeline for one candidate: cheap filters,
// inference classification, seven scored dimensions, boosts, verdict.
// A failing sub-dimension defaults to a neutral 50 instead of failing
// the candidate; only a broken duplicate check surfaces as an error.
func (e *Evaluator) Evaluate(ctx context.Context, cand domain.CandidateDetails) (domain.Evaluation, error) {
	if cand.DurationSeconds < minDurationSeconds {
		return reject(fmt.Sprintf("too short: %ds", cand.DurationSeconds)), nil
	}

	exists, err := e.knowledge.ExistsBySourceURL(ctx, cand.SourceURL())
	if err != nil {
		return domain.Evaluation{}, fmt.Errorf("duplicate check: %w", err)
	}
	if exists {
		return reject("duplicate: already in knowledge store"), nil
	}

	classification, usable := e.classify(ctx, cand)
	if !usable {
		return reject("inference output unusable"), nil
	}
	if !classification.Instructional {
		ev := reject("not instructional content")
		ev.Classification = classification
		return ev, nil
	}
	if classification.Quality < minClassifiedQuality {
		ev := reject(fmt.Sprintf("classified quality %.1f below %.1f", classification.Quality, minClassifiedQuality))
		ev.Classification = classification
		return ev, nil
	}

	technique, match := e.taxonomy.Match(cand.Title, cand.Description)
	techniqueName := resolveTechniqueName(technique, classification)

	dims := domain.DimensionScores{
		Authority:    e.dimension("authority", func() (float64, error) { return e.authority(ctx, cand.ChannelTitle) }),
		Taxonomy:     taxonomyScore(match),
		Coverage:     e.dimension("coverage", func() (float64, error) { return e.coverage(ctx, techniqueName, match) }),
		UniqueValue:  e.dimension("unique_value", func() (float64, error) { return e.uniqueValue(ctx, techniqueName, cand.ChannelTitle) }),
		UserFeedback: e.dimension("user_feedback", func() (float64, error) { return e.userFeedback(ctx, cand.ChannelTitle, techniqueName) }),
		BeltFit:      beltFitScore(technique, classification),
		Emerging:     e.dimension("emerging", func() (float64, error) { return e.emerging(ctx, techniqueName, cand.PublishedAt) }),
	}

	score := dims.Authority*weightAuthority +
		dims.Taxonomy*weightTaxonomy +
		dims.Coverage*weightCoverage +
		dims.UniqueValue*weightUniqueValue +
		dims.UserFeedback*weightUserFeedback +
		dims.BeltFit*weightBeltFit +
		dims.Emerging*weightEmerging

	ev := domain.Evaluation{
		FinalScore:     score,
		Dimensions:     dims,
		Classification: classification,
		TechniqueName:  techniqueName,
	}

	bc := boostContext{cand: cand, dims: dims, tier: e.tierOf(cand.ChannelTitle)}
	for _, rule := range boostRules {
		if !rule.Applies(bc) {
			continue
		}
		ev.FinalScore += rule.Delta
		ev.BoostsApplied = append(ev.BoostsApplied, rule.Name)
		e.logger.Debug("boost applied",
			"video_id", cand.VideoID,
			"rule", rule.Name,
			"rationale", rule.Rationale,
		)
	}
	ev.FinalScore = clamp(ev.FinalScore, 0, 100)

	if ev.FinalScore >= acceptThreshold {
		ev.Decision = domain.DecisionAccept
		ev.Reason = fmt.Sprintf("score %.1f clears acceptance bar", ev.FinalScore)
	} else {
		ev.Decision = domain.DecisionReject
		ev.Reason = fmt.Sprintf("score %.1f below acceptance bar", ev.FinalScore)
	}

	return ev, nil
}

// classify asks the inference service for a structured read of the video.
// The second return value reports whether the output was usable at all.
func (e *Evaluator) classify(ctx context.Context, cand domain.CandidateDetails) (domain.Classification, bool) {
	reply, err := e.inference.Complete(ctx, classificationPrompt(cand))
	if err != nil {
		e.logger.Warn("inference call failed", "video_id", cand.VideoID, "error", err)
		return domain.Classification{}, false
	}

	raw := llm.ExtractJSON(reply)
	if raw == nil {
		e.logger.Warn("inference reply held no JSON object", "video_id", cand.VideoID)
		return domain.Classification{}, false
	}

	var c domain.Classification
	if err := json.Unmarshal(raw, &c); err != nil {
		e.logger.Warn("inference reply unparseable", "video_id", cand.VideoID, "error", err)
		return domain.Classification{}, false
	}

	c.Technique = strings.ToLower(strings.TrimSpace(c.Technique))
	c.Position = strings.ToLower(strings.TrimSpace(c.Position))
	c.Difficulty = strings.ToLower(strings.TrimSpace(c.Difficulty))

	return c, true
}

// dimension runs one scorer, mapping any failure to a neutral 50 so a
// flaky store read cannot sink an otherwise solid candidate.
func (e *Evaluator) dimension(name string, score func() (float64, error)) float64 {
	v, err := score()
	if err != nil {
		e.logger.Warn("dimension scoring failed, using neutral", "dimension", name, "error", err)
		return 50
	}
	return clamp(v, 0, 100)
}

func (e *Evaluator) authority(ctx context.Context, instructor string) (float64, error) {
	credibility := 20.0
	perf, err := e.instructors.Get(ctx, instructor)
	if err != nil {
		return 0, err
	}
	if perf != nil {
		credibility = perf.CredibilityScore
	}

	return credibility + tierBonus(e.tierOf(instructor)), nil
}

func (e *Evaluator) coverage(ctx context.Context, techniqueName string, match taxonomy.MatchKind) (float64, error) {
	if match == taxonomy.MatchNone {
		return 50, nil
	}

	count, err := e.knowledge.CountByTechnique(ctx, techniqueName)
	if err != nil {
		return 0, err
	}

	score := 100 - 12*float64(count)
	if score < 10 {
		score = 10
	}
	return score, nil
}

func (e *Evaluator) uniqueValue(ctx context.Context, techniqueName, instructor string) (float64, error) {
	count, err := e.knowledge.CountByTechniqueAndInstructor(ctx, techniqueName, instructor)
	if err != nil {
		return 0, err
	}

	switch count {
	case 0:
		return 85, nil
	case 1:
		return 60, nil
	case 2:
		return 40, nil
	default:
		return 25, nil
	}
}

func (e *Evaluator) userFeedback(ctx context.Context, instructor, techniqueName string) (float64, error) {
	since := e.now().Add(-feedbackWindow)
	events, err := e.feedback.InstructorOrTechniqueEvents(ctx, instructor, techniqueName, since)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 50, nil
	}

	score := 50.0
	for _, ev := range events {
		switch ev.Action {
		case domain.ActionClicked, domain.ActionMultipleViews:
			score += 5
		case domain.ActionSkipped:
			score -= 5
		case domain.ActionRepliedBad:
			score -= 15
		}
	}

	return score, nil
}

func (e *Evaluator) emerging(ctx context.Context, techniqueName string, publishedAt time.Time) (float64, error) {
	if techniqueName == "" || techniqueName == unknownTechnique || publishedAt.IsZero() {
		return 40, nil
	}
	if publishedAt.Before(e.now().Add(-emergingWindow)) {
		return 40, nil
	}

	count, err := e.knowledge.CountByTechnique(ctx, techniqueName)
	if err != nil {
		return 0, err
	}
	if count >= 3 {
		return 40, nil
	}

	return 90 - 10*float64(count), nil
}

func (e *Evaluator) tierOf(instructor string) string {
	return e.eliteTiers[instructor]
}

func taxonomyScore(match taxonomy.MatchKind) float64 {
	switch match {
	case taxonomy.MatchExact:
		return 90
	case taxonomy.MatchAlias:
		return 80
	case taxonomy.MatchPosition:
		return 55
	default:
		return 25
	}
}

// beltFitScore favors broadly applicable beginner material and docks
// candidates whose classified difficulty contradicts the technique's
// usual belt level.
func beltFitScore(technique *taxonomy.Technique, c domain.Classification) float64 {
	belt := c.Difficulty
	if technique != nil && technique.Belt != "" {
		belt = technique.Belt
	}

	score := beltBreadth(belt)
	if technique != nil && technique.Belt != "" && c.Difficulty != "" && c.Difficulty != technique.Belt {
		score -= 15
	}

	return clamp(score, 0, 100)
}

func beltBreadth(belt string) float64 {
	switch belt {
	case "white", "blue":
		return 85
	case "purple":
		return 65
	case "brown", "black":
		return 50
	default:
		return 60
	}
}

func tierBonus(tier string) float64 {
	switch tier {
	case "legend":
		return 45
	case "elite":
		return 35
	case "notable":
		return 20
	default:
		return 0
	}
}

func resolveTechniqueName(technique *taxonomy.Technique, c domain.Classification) string {
	if technique != nil {
		return technique.Name
	}
	if c.Technique != "" {
		return c.Technique
	}
	return unknownTechnique
}

func reject(reason string) domain.Evaluation {
	return domain.Evaluation{Decision: domain.DecisionReject, Reason: reason}
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
