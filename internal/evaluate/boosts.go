package evaluate

import "VideoCurator/internal/domain"

// boostContext is what a boost rule may inspect: the candidate, its
// dimension scores, and the instructor's configured elite tier.
type boostContext struct {
	cand domain.CandidateDetails
	dims domain.DimensionScores
	tier string
}

// BoostRule bumps the final score when a candidate matches a curation
// priority. Rules are data, not branches, so adding one never touches
// the scoring pipeline.
type BoostRule struct {
	Name      string
	Rationale string
	Delta     float64
	Applies   func(bc boostContext) bool
}

var boostRules = []BoostRule{
	{
		Name:      "elite-instructor",
		Rationale: "material from a configured elite-tier instructor",
		Delta:     5,
		Applies: func(bc boostContext) bool {
			return bc.tier != ""
		},
	},
	{
		Name:      "content-gap",
		Rationale: "the library holds little or nothing on this technique",
		Delta:     4,
		Applies: func(bc boostContext) bool {
			return bc.dims.Coverage >= 88
		},
	},
	{
		Name:      "emerging-technique",
		Rationale: "recent material on an under-represented technique",
		Delta:     3,
		Applies: func(bc boostContext) bool {
			return bc.dims.Emerging >= 70
		},
	},
}
