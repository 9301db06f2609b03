// Package feedback closes the learning loop: user reactions to delivered
// recommendations update per-user profiles and per-instructor credibility,
// which the evaluator reads back on later curation runs.
package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"VideoCurator/internal/domain"
	"VideoCurator/internal/ports"
)

const (
	baseCredibility = 20.0

	favoredAdjustment = 5.0
	avoidedAdjustment = -15.0

	techniqueWindow = 30 * 24 * time.Hour

	alertSkipRate = 0.15
	alertBadRate  = 0.05
)

// LoopDeps wires the stores and the notifier the loop writes through.
type LoopDeps struct {
	Feedback    ports.FeedbackRepository
	Instructors ports.InstructorRepository
	Profiles    ports.ProfileRepository
	Metrics     ports.MetricsRepository
	Tx          ports.TxRunner
	Notifier    ports.Notifier
	Logger      *slog.Logger
	Now         func() time.Time
}

// Loop records feedback events and maintains the aggregates derived from them.
type Loop struct {
	feedback    ports.FeedbackRepository
	instructors ports.InstructorRepository
	profiles    ports.ProfileRepository
	metrics     ports.MetricsRepository
	tx          ports.TxRunner
	notifier    ports.Notifier
	logger      *slog.Logger
	now         func() time.Time
}

// NewLoop constructs the feedback loop.
func NewLoop(deps LoopDeps) *Loop {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Loop{
		feedback:    deps.Feedback,
		instructors: deps.Instructors,
		profiles:    deps.Profiles,
		metrics:     deps.Metrics,
		tx:          deps.Tx,
		notifier:    deps.Notifier,
		logger:      deps.Logger,
		now:         now,
	}
}

// Record applies one user reaction atomically: the event is appended, the
// user's profile lists are updated, and the instructor's counters, rates,
// and credibility are recomputed. Either every write lands or none does.
func (l *Loop) Record(ctx context.Context, userID, instructor, videoID, technique string, action domain.FeedbackAction) error {
	if !domain.ValidFeedbackAction(string(action)) {
		return fmt.Errorf("unknown feedback action %q", action)
	}

	now := l.now()
	err := l.tx.InTx(ctx, func(ctx context.Context) error {
		ev := domain.FeedbackEvent{
			UserID:         userID,
			VideoID:        videoID,
			InstructorName: instructor,
			TechniqueName:  technique,
			Action:         action,
			CreatedAt:      now,
		}
		if err := l.feedback.Append(ctx, ev); err != nil {
			return fmt.Errorf("append event: %w", err)
		}
		if err := l.applyToProfile(ctx, userID, instructor, technique, action, now); err != nil {
			return err
		}
		return l.applyToInstructor(ctx, instructor, action, now)
	})
	if err != nil {
		return err
	}

	l.logger.Info("feedback recorded",
		"user_id", userID,
		"instructor", instructor,
		"action", string(action),
	)
	return nil
}

// applyToProfile keeps the favorite and avoid lists mutually exclusive per
// instructor. A no_action event leaves the profile untouched.
func (l *Loop) applyToProfile(ctx context.Context, userID, instructor, technique string, action domain.FeedbackAction, now time.Time) error {
	if !action.Positive() && !action.Negative() {
		return nil
	}

	profile, err := l.profiles.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	if profile == nil {
		profile = &domain.UserLearningProfile{UserID: userID}
	}

	if action.Positive() {
		profile.Favor(instructor)
		profile.PreferTechnique(technique)
	} else {
		profile.Avoid(instructor)
	}
	profile.UpdatedAt = now

	if err := l.profiles.Upsert(ctx, *profile); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func (l *Loop) applyToInstructor(ctx context.Context, instructor string, action domain.FeedbackAction, now time.Time) error {
	perf, err := l.instructors.Get(ctx, instructor)
	if err != nil {
		return fmt.Errorf("load instructor performance: %w", err)
	}
	if perf == nil {
		perf = &domain.InstructorPerformance{
			InstructorName:   instructor,
			CredibilityScore: baseCredibility,
		}
	}

	perf.TotalSent++
	switch action {
	case domain.ActionClicked, domain.ActionMultipleViews:
		perf.TotalClicks++
	case domain.ActionSkipped:
		perf.TotalSkips++
	case domain.ActionRepliedBad:
		perf.TotalBadRatings++
	}
	perf.RecomputeRates()
	perf.CredibilityScore = credibility(*perf)
	perf.UpdatedAt = now

	if err := l.instructors.Upsert(ctx, *perf); err != nil {
		return fmt.Errorf("save instructor performance: %w", err)
	}
	return nil
}

// credibility derives the bounded reputation score from the aggregate rates.
// Increments are fixed and never decay toward neutral.
func credibility(p domain.InstructorPerformance) float64 {
	score := baseCredibility
	if p.ClickRate > 0.30 {
		score += 5
	}
	if p.SkipRate > 0.20 {
		score -= 5
	}
	if p.BadRate > 0.10 {
		score -= 5
	}
	return clamp(score, 0, 100)
}

// ScoringAdjustments returns the per-user deltas a recommendation layer adds
// on top of the evaluator's platform-wide score: a fixed instructor delta
// from the profile lists, and a technique delta summed over the user's
// trailing 30 days of events for that technique.
func (l *Loop) ScoringAdjustments(ctx context.Context, userID, instructor, technique string) (domain.ScoringAdjustments, error) {
	var adj domain.ScoringAdjustments

	profile, err := l.profiles.Get(ctx, userID)
	if err != nil {
		return adj, fmt.Errorf("load profile: %w", err)
	}
	if profile != nil {
		switch {
		case profile.Favors(instructor):
			adj.InstructorAdjustment = favoredAdjustment
		case profile.Avoids(instructor):
			adj.InstructorAdjustment = avoidedAdjustment
		}
	}

	since := l.now().Add(-techniqueWindow)
	events, err := l.feedback.UserTechniqueEvents(ctx, userID, technique, since)
	if err != nil {
		return adj, fmt.Errorf("load technique events: %w", err)
	}
	for _, ev := range events {
		switch ev.Action {
		case domain.ActionClicked, domain.ActionMultipleViews:
			adj.TechniqueAdjustment += 5
		case domain.ActionSkipped:
			adj.TechniqueAdjustment -= 5
		case domain.ActionRepliedBad:
			adj.TechniqueAdjustment -= 15
		}
	}

	return adj, nil
}

// AggregateDaily computes and persists the platform-wide aggregate for one
// calendar day, then raises operator alerts on threshold breaches. Alert
// delivery failures are logged, never escalated.
func (l *Loop) AggregateDaily(ctx context.Context, day time.Time) (domain.DailyMetrics, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	to := from.Add(24 * time.Hour)

	events, err := l.feedback.EventsBetween(ctx, from, to)
	if err != nil {
		return domain.DailyMetrics{}, fmt.Errorf("load daily events: %w", err)
	}

	m := domain.DailyMetrics{Day: from, TotalSent: len(events)}
	if len(events) > 0 {
		var clicks, skips, bad int
		instructors := map[string]struct{}{}
		deliveries := map[string]int{}
		for _, ev := range events {
			switch ev.Action {
			case domain.ActionClicked, domain.ActionMultipleViews:
				clicks++
			case domain.ActionSkipped:
				skips++
			case domain.ActionRepliedBad:
				bad++
			}
			instructors[ev.InstructorName] = struct{}{}
			deliveries[ev.UserID+"\x00"+ev.InstructorName]++
		}

		sent := float64(len(events))
		m.ClickRate = float64(clicks) / sent
		m.SkipRate = float64(skips) / sent
		m.BadRate = float64(bad) / sent
		m.DiversityScore = float64(len(instructors)) / sent * 100
		for _, n := range deliveries {
			if n > 1 {
				m.DuplicateInstructorViolations++
			}
		}
	}

	if err := l.metrics.Upsert(ctx, m); err != nil {
		return domain.DailyMetrics{}, fmt.Errorf("save daily metrics: %w", err)
	}

	l.logger.Info("daily metrics aggregated",
		"day", from.Format("2006-01-02"),
		"total_sent", m.TotalSent,
		"skip_rate", m.SkipRate,
		"bad_rate", m.BadRate,
	)
	l.alert(ctx, m)

	return m, nil
}

func (l *Loop) alert(ctx context.Context, m domain.DailyMetrics) {
	var problems []string
	if m.SkipRate > alertSkipRate {
		problems = append(problems, fmt.Sprintf("skip rate %.1f%% exceeds %.0f%%", m.SkipRate*100, alertSkipRate*100))
	}
	if m.BadRate > alertBadRate {
		problems = append(problems, fmt.Sprintf("bad-reply rate %.1f%% exceeds %.0f%%", m.BadRate*100, alertBadRate*100))
	}
	if m.DuplicateInstructorViolations > 0 {
		problems = append(problems, fmt.Sprintf("%d duplicate-instructor deliveries", m.DuplicateInstructorViolations))
	}
	if len(problems) == 0 {
		return
	}

	body := fmt.Sprintf("Feedback alerts for %s:\n- %s",
		m.Day.Format("2006-01-02"), strings.Join(problems, "\n- "))
	if err := l.notifier.Send(ctx, "", "Feedback quality alerts", body); err != nil {
		l.logger.Error("alert notification failed", "error", err)
	}
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
