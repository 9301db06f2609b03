package domain

// Decision is the evaluator's verdict on a candidate.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// Classification is the inference service's read of a candidate video.
type Classification struct {
	Instructional bool    `json:"instructional"`
	Quality       float64 `json:"quality"`
	Technique     string  `json:"technique"`
	Position      string  `json:"position"`
	Difficulty    string  `json:"difficulty"`
}

// Evaluation is the full accept/reject outcome with its score breakdown.
type Evaluation struct {
	Decision       Decision
	FinalScore     float64
	Dimensions     DimensionScores
	BoostsApplied  []string
	Reason         string
	Classification Classification
	TechniqueName  string
}

// Accepted reports whether the candidate cleared the acceptance threshold.
func (e Evaluation) Accepted() bool {
	return e.Decision == DecisionAccept
}
