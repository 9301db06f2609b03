package evaluate

import (
	"fmt"

	"VideoCurator/internal/domain"
)

const maxPromptDescription = 800

// classificationPrompt asks for a strict JSON verdict on one candidate.
// The keys mirror domain.Classification's JSON tags exactly.
func classificationPrompt(cand domain.CandidateDetails) string {
	description := cand.Description
	if len(description) > maxPromptDescription {
		description = description[:maxPromptDescription]
	}

	return fmt.Sprintf(`You review Brazilian Jiu-Jitsu videos for a technique library.

Video title: %q
Channel: %q
Duration: %d seconds
Description: %q

Decide whether this is genuine instructional content (a teacher breaking down technique, not a match, highlight reel, podcast, or vlog) and rate its teaching quality from 1 to 10.

Return ONLY a JSON object, no prose, with exactly these keys:
{"instructional": bool, "quality": number, "technique": "main technique taught, lowercase", "position": "starting position, lowercase", "difficulty": "white|blue|purple|brown|black"}`,
		cand.Title, cand.ChannelTitle, cand.DurationSeconds, description)
}
