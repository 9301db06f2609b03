package domain

import (
	"time"

	"github.com/google/uuid"
)

// CandidateRef is the lightweight search result returned by the video catalog.
type CandidateRef struct {
	VideoID      string
	Title        string
	ChannelTitle string
	PublishedAt  time.Time
}

// CandidateDetails carries the full metadata needed to evaluate a candidate.
type CandidateDetails struct {
	CandidateRef
	Description     string
	DurationSeconds int
	ViewCount       int64
	LikeCount       int64
}

// SourceURL derives the canonical watch URL used as the unique ingestion key.
func (d CandidateDetails) SourceURL() string {
	return "https://www.youtube.com/watch?v=" + d.VideoID
}

// RecordStatus marks whether a stored video is still reachable upstream.
type RecordStatus string

const (
	RecordActive      RecordStatus = "active"
	RecordUnavailable RecordStatus = "unavailable"
)

// DimensionScores holds the seven 0-100 sub-scores combined into a final score.
type DimensionScores struct {
	Authority    float64 `json:"authority"`
	Taxonomy     float64 `json:"taxonomy"`
	Coverage     float64 `json:"coverage"`
	UniqueValue  float64 `json:"unique_value"`
	UserFeedback float64 `json:"user_feedback"`
	BeltFit      float64 `json:"belt_fit"`
	Emerging     float64 `json:"emerging"`
}

// KnowledgeRecord is an accepted video persisted into the knowledge store.
type KnowledgeRecord struct {
	ID              uuid.UUID
	SourceURL       string
	Title           string
	InstructorName  string
	TechniqueName   string
	DurationSeconds int
	Dimensions      DimensionScores
	FinalScore      float64
	BoostsApplied   []string
	Reason          string
	Status          RecordStatus
	CreatedAt       time.Time
}
