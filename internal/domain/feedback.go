package domain

import "time"

// FeedbackAction enumerates the discrete user reactions the loop consumes.
type FeedbackAction string

const (
	ActionClicked       FeedbackAction = "clicked"
	ActionSkipped       FeedbackAction = "skipped"
	ActionRepliedBad    FeedbackAction = "replied_bad"
	ActionMultipleViews FeedbackAction = "multiple_views"
	ActionNoAction      FeedbackAction = "no_action"
)

// ValidFeedbackAction guards external input before it reaches the loop.
func ValidFeedbackAction(a string) bool {
	switch FeedbackAction(a) {
	case ActionClicked, ActionSkipped, ActionRepliedBad, ActionMultipleViews, ActionNoAction:
		return true
	}
	return false
}

// Positive reports whether the action signals the user valued the instructor.
func (a FeedbackAction) Positive() bool {
	return a == ActionClicked || a == ActionMultipleViews
}

// Negative reports whether the action signals the user rejected the instructor.
func (a FeedbackAction) Negative() bool {
	return a == ActionSkipped || a == ActionRepliedBad
}

// FeedbackEvent is an immutable append-only record of one user reaction.
type FeedbackEvent struct {
	ID             int64
	UserID         string
	VideoID        string
	InstructorName string
	TechniqueName  string
	Action         FeedbackAction
	CreatedAt      time.Time
}

// InstructorPerformance aggregates per-instructor delivery outcomes and the
// derived credibility score consumed by the evaluator on later runs.
type InstructorPerformance struct {
	InstructorName   string
	TotalSent        int
	TotalClicks      int
	TotalSkips       int
	TotalBadRatings  int
	ClickRate        float64
	SkipRate         float64
	BadRate          float64
	CredibilityScore float64
	UpdatedAt        time.Time
}

// RecomputeRates refreshes the derived rates from the raw counters.
func (p *InstructorPerformance) RecomputeRates() {
	if p.TotalSent == 0 {
		p.ClickRate, p.SkipRate, p.BadRate = 0, 0, 0
		return
	}
	sent := float64(p.TotalSent)
	p.ClickRate = float64(p.TotalClicks) / sent
	p.SkipRate = float64(p.TotalSkips) / sent
	p.BadRate = float64(p.TotalBadRatings) / sent
}

// UserLearningProfile stores per-user preference state mutated by feedback.
// An instructor is never on both lists at once.
type UserLearningProfile struct {
	UserID              string
	FavoriteInstructors []string
	AvoidInstructors    []string
	PreferredTechniques []string
	UpdatedAt           time.Time
}

// Favors reports whether the instructor is on the user's favorites list.
func (p UserLearningProfile) Favors(instructor string) bool {
	return contains(p.FavoriteInstructors, instructor)
}

// Avoids reports whether the instructor is on the user's avoid list.
func (p UserLearningProfile) Avoids(instructor string) bool {
	return contains(p.AvoidInstructors, instructor)
}

// Favor adds the instructor to favorites and drops it from the avoid list.
func (p *UserLearningProfile) Favor(instructor string) {
	p.AvoidInstructors = remove(p.AvoidInstructors, instructor)
	if !contains(p.FavoriteInstructors, instructor) {
		p.FavoriteInstructors = append(p.FavoriteInstructors, instructor)
	}
}

// Avoid adds the instructor to the avoid list and drops it from favorites.
func (p *UserLearningProfile) Avoid(instructor string) {
	p.FavoriteInstructors = remove(p.FavoriteInstructors, instructor)
	if !contains(p.AvoidInstructors, instructor) {
		p.AvoidInstructors = append(p.AvoidInstructors, instructor)
	}
}

// PreferTechnique records a technique the user engaged with positively.
func (p *UserLearningProfile) PreferTechnique(technique string) {
	if technique == "" || contains(p.PreferredTechniques, technique) {
		return
	}
	p.PreferredTechniques = append(p.PreferredTechniques, technique)
}

// ScoringAdjustments feed the evaluator's user-feedback dimension on later runs.
type ScoringAdjustments struct {
	InstructorAdjustment float64
	TechniqueAdjustment  float64
}

// DailyMetrics is the platform-wide feedback aggregate persisted per day.
type DailyMetrics struct {
	Day                           time.Time
	TotalSent                     int
	ClickRate                     float64
	SkipRate                      float64
	BadRate                       float64
	DiversityScore                float64
	DuplicateInstructorViolations int
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func remove(list []string, v string) []string {
	out := list[:0]
	for _, item := range list {
		if item != v {
			out = append(out, item)
		}
	}
	return out
}
