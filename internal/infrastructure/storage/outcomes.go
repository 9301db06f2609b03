package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"VideoCurator/internal/domain"
	"VideoCurator/internal/ports"
)

// PostgresOutcomeRepository stores recommendation outcomes and their
// evaluation results.
type PostgresOutcomeRepository struct {
	db *sql.DB
}

var _ ports.OutcomeRepository = (*PostgresOutcomeRepository)(nil)

// NewPostgresOutcomeRepository wires a sql.DB implementation.
func NewPostgresOutcomeRepository(db *sql.DB) *PostgresOutcomeRepository {
	return &PostgresOutcomeRepository{db: db}
}

// Insert stores the delivery record of one recommendation.
func (r *PostgresOutcomeRepository) Insert(ctx context.Context, o domain.RecommendationOutcome) error {
	signals, err := json.Marshal(o.Signals)
	if err != nil {
		return fmt.Errorf("marshal signals: %w", err)
	}

	query := `INSERT INTO recommendation_outcomes
              (id, user_id, video_id, variant, predicted_engagement, signals, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = runnerFrom(ctx, r.db).ExecContext(ctx, query,
		o.ID,
		o.UserID,
		o.VideoID,
		o.AlgorithmVariant,
		o.PredictedEngagement,
		signals,
		o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}

	return nil
}

// Get loads one outcome by id.
func (r *PostgresOutcomeRepository) Get(ctx context.Context, id uuid.UUID) (*domain.RecommendationOutcome, error) {
	query, args, err := outcomeSelect().Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build outcome query: %w", err)
	}

	rows, err := runnerFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query outcome: %w", err)
	}
	defer rows.Close()

	outcomes, err := collectOutcomes(rows)
	if err != nil {
		return nil, err
	}
	if len(outcomes) == 0 {
		return nil, fmt.Errorf("outcome %s not found", id)
	}

	return &outcomes[0], nil
}

// UnevaluatedSince returns delivery records created after since that have
// not been scored yet.
func (r *PostgresOutcomeRepository) UnevaluatedSince(ctx context.Context, since time.Time) ([]domain.RecommendationOutcome, error) {
	query, args, err := outcomeSelect().
		Where(sq.Eq{"evaluated_at": nil}).
		Where(sq.GtOrEq{"created_at": since}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build unevaluated query: %w", err)
	}

	rows, err := runnerFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query unevaluated outcomes: %w", err)
	}
	defer rows.Close()

	return collectOutcomes(rows)
}

// SaveEvaluation writes the computed scores back onto the outcome row.
func (r *PostgresOutcomeRepository) SaveEvaluation(ctx context.Context, o domain.RecommendationOutcome) error {
	if o.EvaluatedAt == nil {
		return fmt.Errorf("outcome %s has no evaluation time", o.ID)
	}

	signals, err := json.Marshal(o.Signals)
	if err != nil {
		return fmt.Errorf("marshal signals: %w", err)
	}

	query, args, err := psql.Update("recommendation_outcomes").
		Set("signals", signals).
		Set("immediate_engagement", o.ImmediateScore).
		Set("short_term_value", o.ShortTermScore).
		Set("long_term_impact", o.LongTermScore).
		Set("overall_quality", o.OverallQuality).
		Set("prediction_accuracy", o.PredictionAccuracy).
		Set("evaluated_at", *o.EvaluatedAt).
		Where(sq.Eq{"id": o.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build evaluation update: %w", err)
	}

	if _, err := runnerFrom(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save evaluation: %w", err)
	}

	return nil
}

// EvaluatedByVariant returns every scored outcome delivered by the variant.
func (r *PostgresOutcomeRepository) EvaluatedByVariant(ctx context.Context, variant string) ([]domain.RecommendationOutcome, error) {
	query, args, err := outcomeSelect().
		Where(sq.Eq{"variant": variant}).
		Where(sq.NotEq{"evaluated_at": nil}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build variant query: %w", err)
	}

	rows, err := runnerFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query variant outcomes: %w", err)
	}
	defer rows.Close()

	return collectOutcomes(rows)
}

func outcomeSelect() sq.SelectBuilder {
	return psql.Select("id", "user_id", "video_id", "variant", "predicted_engagement", "signals",
		"immediate_engagement", "short_term_value", "long_term_impact", "overall_quality",
		"prediction_accuracy", "created_at", "evaluated_at").
		From("recommendation_outcomes")
}

func collectOutcomes(rows *sql.Rows) ([]domain.RecommendationOutcome, error) {
	var outcomes []domain.RecommendationOutcome
	for rows.Next() {
		var o domain.RecommendationOutcome
		var signals []byte
		var evaluatedAt sql.NullTime

		err := rows.Scan(&o.ID, &o.UserID, &o.VideoID, &o.AlgorithmVariant, &o.PredictedEngagement, &signals,
			&o.ImmediateScore, &o.ShortTermScore, &o.LongTermScore, &o.OverallQuality,
			&o.PredictionAccuracy, &o.CreatedAt, &evaluatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}

		if len(signals) > 0 {
			if err := json.Unmarshal(signals, &o.Signals); err != nil {
				return nil, fmt.Errorf("unmarshal signals: %w", err)
			}
		}
		if evaluatedAt.Valid {
			t := evaluatedAt.Time
			o.EvaluatedAt = &t
		}

		outcomes = append(outcomes, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return outcomes, nil
}
