package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"VideoCurator/internal/domain"
	"VideoCurator/internal/ports"
)

// PostgresRunRepository persists curation run lifecycle rows.
type PostgresRunRepository struct {
	db *sql.DB
}

var _ ports.RunRepository = (*PostgresRunRepository)(nil)

// NewPostgresRunRepository wires a sql.DB implementation.
func NewPostgresRunRepository(db *sql.DB) *PostgresRunRepository {
	return &PostgresRunRepository{db: db}
}

// Create inserts the freshly started run row.
func (r *PostgresRunRepository) Create(ctx context.Context, run domain.CurationRun) error {
	query := `INSERT INTO curation_runs
              (id, trigger_kind, status, started_at, candidates_evaluated, candidates_accepted, error_message)
              VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := runnerFrom(ctx, r.db).ExecContext(ctx, query,
		run.ID,
		run.Trigger,
		run.Status,
		run.StartedAt,
		run.CandidatesEvaluated,
		run.CandidatesAccepted,
		run.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	return nil
}

// Get loads one run by id.
func (r *PostgresRunRepository) Get(ctx context.Context, id uuid.UUID) (*domain.CurationRun, error) {
	query := `SELECT id, trigger_kind, status, started_at, completed_at,
                     candidates_evaluated, candidates_accepted, error_message
              FROM curation_runs WHERE id = $1`

	run, err := scanRun(runnerFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}

	return &run, nil
}

// Finish moves a run to a terminal status. The status guard in the WHERE
// clause keeps a finished run from ever being finished twice.
func (r *PostgresRunRepository) Finish(ctx context.Context, id uuid.UUID, status domain.RunStatus, evaluated, accepted int, errorMessage string, completedAt time.Time) error {
	if !status.Terminal() {
		return fmt.Errorf("status %s is not terminal", status)
	}

	query, args, err := psql.Update("curation_runs").
		Set("status", status).
		Set("candidates_evaluated", evaluated).
		Set("candidates_accepted", accepted).
		Set("error_message", errorMessage).
		Set("completed_at", completedAt).
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"status": []domain.RunStatus{domain.RunPending, domain.RunRunning}}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build finish query: %w", err)
	}

	res, err := runnerFrom(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s is not in a finishable state", id)
	}

	return nil
}

// RunningSince returns runs still marked running that started before cutoff.
func (r *PostgresRunRepository) RunningSince(ctx context.Context, cutoff time.Time) ([]domain.CurationRun, error) {
	query, args, err := psql.Select("id", "trigger_kind", "status", "started_at", "completed_at",
		"candidates_evaluated", "candidates_accepted", "error_message").
		From("curation_runs").
		Where(sq.Eq{"status": domain.RunRunning}).
		Where(sq.Lt{"started_at": cutoff}).
		OrderBy("started_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build running query: %w", err)
	}

	rows, err := runnerFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query running runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.CurationRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (domain.CurationRun, error) {
	var run domain.CurationRun
	var completedAt sql.NullTime

	err := row.Scan(&run.ID, &run.Trigger, &run.Status, &run.StartedAt, &completedAt,
		&run.CandidatesEvaluated, &run.CandidatesAccepted, &run.ErrorMessage)
	if err != nil {
		return domain.CurationRun{}, err
	}

	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}

	return run, nil
}
