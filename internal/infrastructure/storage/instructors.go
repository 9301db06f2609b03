package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"VideoCurator/internal/domain"
	"VideoCurator/internal/ports"
)

// PostgresInstructorRepository keeps per-instructor aggregate rows.
type PostgresInstructorRepository struct {
	db *sql.DB
}

var _ ports.InstructorRepository = (*PostgresInstructorRepository)(nil)

// NewPostgresInstructorRepository wires a sql.DB implementation.
func NewPostgresInstructorRepository(db *sql.DB) *PostgresInstructorRepository {
	return &PostgresInstructorRepository{db: db}
}

// Get loads one instructor's aggregate. Returns nil when no row exists yet.
func (r *PostgresInstructorRepository) Get(ctx context.Context, instructor string) (*domain.InstructorPerformance, error) {
	query := `SELECT instructor, total_sent, total_clicks, total_skips, total_bad_ratings,
                     click_rate, skip_rate, bad_rate, credibility, updated_at
              FROM instructor_performance WHERE instructor = $1`

	var perf domain.InstructorPerformance
	err := runnerFrom(ctx, r.db).QueryRowContext(ctx, query, instructor).Scan(
		&perf.InstructorName,
		&perf.TotalSent,
		&perf.TotalClicks,
		&perf.TotalSkips,
		&perf.TotalBadRatings,
		&perf.ClickRate,
		&perf.SkipRate,
		&perf.BadRate,
		&perf.CredibilityScore,
		&perf.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query instructor: %w", err)
	}

	return &perf, nil
}

// Upsert writes the aggregate row, replacing counters and derived scores.
func (r *PostgresInstructorRepository) Upsert(ctx context.Context, perf domain.InstructorPerformance) error {
	query := `INSERT INTO instructor_performance
              (instructor, total_sent, total_clicks, total_skips, total_bad_ratings,
               click_rate, skip_rate, bad_rate, credibility, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
              ON CONFLICT (instructor) DO UPDATE
              SET total_sent = EXCLUDED.total_sent,
                  total_clicks = EXCLUDED.total_clicks,
                  total_skips = EXCLUDED.total_skips,
                  total_bad_ratings = EXCLUDED.total_bad_ratings,
                  click_rate = EXCLUDED.click_rate,
                  skip_rate = EXCLUDED.skip_rate,
                  bad_rate = EXCLUDED.bad_rate,
                  credibility = EXCLUDED.credibility,
                  updated_at = EXCLUDED.updated_at`

	_, err := runnerFrom(ctx, r.db).ExecContext(ctx, query,
		perf.InstructorName,
		perf.TotalSent,
		perf.TotalClicks,
		perf.TotalSkips,
		perf.TotalBadRatings,
		perf.ClickRate,
		perf.SkipRate,
		perf.BadRate,
		perf.CredibilityScore,
		perf.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert instructor: %w", err)
	}

	return nil
}
