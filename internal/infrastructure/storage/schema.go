package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// ddl creates every table the repositories touch. Statements are
// idempotent so the schema can be applied on every start.
var ddl = []string{
	`CREATE TABLE IF NOT EXISTS curation_runs (
		id uuid PRIMARY KEY,
		trigger_kind text NOT NULL,
		status text NOT NULL,
		started_at timestamptz NOT NULL,
		completed_at timestamptz,
		candidates_evaluated integer NOT NULL DEFAULT 0,
		candidates_accepted integer NOT NULL DEFAULT 0,
		error_message text NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS curation_runs_running_idx
		ON curation_runs (started_at) WHERE status = 'running'`,

	`CREATE TABLE IF NOT EXISTS run_locks (
		slot text PRIMARY KEY,
		run_id uuid NOT NULL,
		acquired_at timestamptz NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS knowledge_records (
		id uuid PRIMARY KEY,
		source_url text NOT NULL UNIQUE,
		title text NOT NULL,
		instructor text NOT NULL,
		technique text NOT NULL,
		duration_seconds integer NOT NULL,
		dimensions jsonb,
		final_score double precision NOT NULL,
		boosts text[] NOT NULL DEFAULT '{}',
		reason text NOT NULL DEFAULT '',
		status text NOT NULL,
		created_at timestamptz NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS knowledge_records_technique_idx
		ON knowledge_records (technique, instructor) WHERE status = 'active'`,

	`CREATE TABLE IF NOT EXISTS instructor_performance (
		instructor text PRIMARY KEY,
		total_sent integer NOT NULL DEFAULT 0,
		total_clicks integer NOT NULL DEFAULT 0,
		total_skips integer NOT NULL DEFAULT 0,
		total_bad_ratings integer NOT NULL DEFAULT 0,
		click_rate double precision NOT NULL DEFAULT 0,
		skip_rate double precision NOT NULL DEFAULT 0,
		bad_rate double precision NOT NULL DEFAULT 0,
		credibility double precision NOT NULL DEFAULT 20,
		updated_at timestamptz NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS user_learning_profiles (
		user_id text PRIMARY KEY,
		favorite_instructors text[] NOT NULL DEFAULT '{}',
		avoided_instructors text[] NOT NULL DEFAULT '{}',
		preferred_techniques text[] NOT NULL DEFAULT '{}',
		updated_at timestamptz NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS feedback_events (
		id bigserial PRIMARY KEY,
		user_id text NOT NULL,
		video_id text NOT NULL,
		instructor text NOT NULL,
		technique text NOT NULL,
		action text NOT NULL,
		created_at timestamptz NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS feedback_events_created_idx
		ON feedback_events (created_at)`,
	`CREATE INDEX IF NOT EXISTS feedback_events_user_technique_idx
		ON feedback_events (user_id, technique, created_at)`,

	`CREATE TABLE IF NOT EXISTS recommendation_outcomes (
		id uuid PRIMARY KEY,
		user_id text NOT NULL,
		video_id text NOT NULL,
		variant text NOT NULL,
		predicted_engagement double precision NOT NULL,
		signals jsonb,
		immediate_engagement double precision NOT NULL DEFAULT 0,
		short_term_value double precision NOT NULL DEFAULT 0,
		long_term_impact double precision NOT NULL DEFAULT 0,
		overall_quality double precision NOT NULL DEFAULT 0,
		prediction_accuracy double precision NOT NULL DEFAULT 0,
		created_at timestamptz NOT NULL,
		evaluated_at timestamptz
	)`,
	`CREATE INDEX IF NOT EXISTS recommendation_outcomes_pending_idx
		ON recommendation_outcomes (created_at) WHERE evaluated_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS recommendation_outcomes_variant_idx
		ON recommendation_outcomes (variant) WHERE evaluated_at IS NOT NULL`,

	`CREATE TABLE IF NOT EXISTS ab_experiments (
		id uuid PRIMARY KEY,
		name text NOT NULL UNIQUE,
		control_variant text NOT NULL,
		treatment_variant text NOT NULL,
		control_engagement double precision NOT NULL DEFAULT 0,
		treatment_engagement double precision NOT NULL DEFAULT 0,
		control_satisfaction double precision NOT NULL DEFAULT 0,
		treatment_satisfaction double precision NOT NULL DEFAULT 0,
		control_samples integer NOT NULL DEFAULT 0,
		treatment_samples integer NOT NULL DEFAULT 0,
		winner text,
		status text NOT NULL,
		created_at timestamptz NOT NULL,
		completed_at timestamptz
	)`,

	`CREATE TABLE IF NOT EXISTS daily_metrics (
		day date PRIMARY KEY,
		total_sent integer NOT NULL DEFAULT 0,
		click_rate double precision NOT NULL DEFAULT 0,
		skip_rate double precision NOT NULL DEFAULT 0,
		bad_rate double precision NOT NULL DEFAULT 0,
		diversity_score double precision NOT NULL DEFAULT 0,
		duplicate_instructor_violations integer NOT NULL DEFAULT 0
	)`,
}

// EnsureSchema applies the DDL. Safe to call on every start.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range ddl {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
