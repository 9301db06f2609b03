package domain

import (
	"time"

	"github.com/google/uuid"
)

// FollowUpSentiment classifies the user's follow-up message after a recommendation.
type FollowUpSentiment string

const (
	FollowUpNone     FollowUpSentiment = "none"
	FollowUpPositive FollowUpSentiment = "positive"
	FollowUpNegative FollowUpSentiment = "negative"
)

// InteractionSignals are the raw post-delivery engagement facts an outcome
// evaluation is computed from.
type InteractionSignals struct {
	Clicked       bool              `json:"clicked"`
	WatchSeconds  int               `json:"watch_seconds"`
	Completed     bool              `json:"completed"`
	Saved         bool              `json:"saved"`
	Shared        bool              `json:"shared"`
	ThumbsUp      bool              `json:"thumbs_up"`
	ThumbsDown    bool              `json:"thumbs_down"`
	RewatchCount  int               `json:"rewatch_count"`
	ProblemSolved bool              `json:"problem_solved"`
	MarkedHelpful bool              `json:"marked_helpful"`
	RepeatQuery   bool              `json:"repeat_query"`
	FollowUp      FollowUpSentiment `json:"follow_up"`
}

// RecommendationOutcome is a write-once record of one delivered recommendation
// and, once evaluated, its multi-horizon quality breakdown.
type RecommendationOutcome struct {
	ID                  uuid.UUID
	UserID              string
	VideoID             string
	AlgorithmVariant    string
	PredictedEngagement float64
	Signals             InteractionSignals
	ImmediateScore      float64
	ShortTermScore      float64
	LongTermScore       float64
	OverallQuality      float64
	PredictionAccuracy  float64
	CreatedAt           time.Time
	EvaluatedAt         *time.Time
}

// Evaluated reports whether the outcome has been scored.
func (o RecommendationOutcome) Evaluated() bool {
	return o.EvaluatedAt != nil
}

// Attribution is the human-readable explanation of an outcome evaluation.
type Attribution struct {
	Worked    []string
	Replicate []string
	Avoid     []string
}

// ABWinner names the winning arm of an experiment.
type ABWinner string

const (
	WinnerControl      ABWinner = "control"
	WinnerTreatment    ABWinner = "treatment"
	WinnerInconclusive ABWinner = "inconclusive"
)

// ExperimentStatus tracks an experiment's lifecycle.
type ExperimentStatus string

const (
	ExperimentActive    ExperimentStatus = "active"
	ExperimentCompleted ExperimentStatus = "completed"
)

// ABTestExperiment compares two recommendation algorithm variants by their
// aggregated outcome quality.
type ABTestExperiment struct {
	ID                    uuid.UUID
	Name                  string
	ControlVariant        string
	TreatmentVariant      string
	ControlEngagement     float64
	TreatmentEngagement   float64
	ControlSatisfaction   float64
	TreatmentSatisfaction float64
	ControlSamples        int
	TreatmentSamples      int
	Winner                ABWinner
	Status                ExperimentStatus
	CreatedAt             time.Time
	CompletedAt           *time.Time
}
