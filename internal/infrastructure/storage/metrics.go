package storage

import (
	"context"
	"database/sql"
	"fmt"

	"VideoCurator/internal/domain"
	"VideoCurator/internal/ports"
)

// PostgresMetricsRepository persists the daily feedback aggregate.
type PostgresMetricsRepository struct {
	db *sql.DB
}

var _ ports.MetricsRepository = (*PostgresMetricsRepository)(nil)

// NewPostgresMetricsRepository wires a sql.DB implementation.
func NewPostgresMetricsRepository(db *sql.DB) *PostgresMetricsRepository {
	return &PostgresMetricsRepository{db: db}
}

// Upsert writes the aggregate for one day. Re-running the aggregation
// for the same day simply replaces the row.
func (r *PostgresMetricsRepository) Upsert(ctx context.Context, m domain.DailyMetrics) error {
	query := `INSERT INTO daily_metrics
              (day, total_sent, click_rate, skip_rate, bad_rate, diversity_score, duplicate_instructor_violations)
              VALUES ($1, $2, $3, $4, $5, $6, $7)
              ON CONFLICT (day) DO UPDATE
              SET total_sent = EXCLUDED.total_sent,
                  click_rate = EXCLUDED.click_rate,
                  skip_rate = EXCLUDED.skip_rate,
                  bad_rate = EXCLUDED.bad_rate,
                  diversity_score = EXCLUDED.diversity_score,
                  duplicate_instructor_violations = EXCLUDED.duplicate_instructor_violations`

	_, err := runnerFrom(ctx, r.db).ExecContext(ctx, query,
		m.Day,
		m.TotalSent,
		m.ClickRate,
		m.SkipRate,
		m.BadRate,
		m.DiversityScore,
		m.DuplicateInstructorViolations,
	)
	if err != nil {
		return fmt.Errorf("upsert daily metrics: %w", err)
	}

	return nil
}
