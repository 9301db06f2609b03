package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"VideoCurator/internal/ports"
)

// PostgresRunLocker is a table-backed advisory lock. Unlike session
// advisory locks it survives the owning process dying, which lets the
// recovery sweep free slots held by crashed runs.
type PostgresRunLocker struct {
	db *sql.DB
}

var _ ports.RunLocker = (*PostgresRunLocker)(nil)

// NewPostgresRunLocker wires a sql.DB implementation.
func NewPostgresRunLocker(db *sql.DB) *PostgresRunLocker {
	return &PostgresRunLocker{db: db}
}

// Acquire claims the slot for the run. Reports false when another run
// already holds it.
func (l *PostgresRunLocker) Acquire(ctx context.Context, slot string, runID uuid.UUID) (bool, error) {
	query := `INSERT INTO run_locks (slot, run_id, acquired_at)
              VALUES ($1, $2, NOW())
              ON CONFLICT (slot) DO NOTHING`

	res, err := runnerFrom(ctx, l.db).ExecContext(ctx, query, slot, runID)
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("acquire lock rows: %w", err)
	}

	return affected > 0, nil
}

// Release frees the slot. Releasing a free slot is a no-op.
func (l *PostgresRunLocker) Release(ctx context.Context, slot string) error {
	if _, err := runnerFrom(ctx, l.db).ExecContext(ctx, `DELETE FROM run_locks WHERE slot = $1`, slot); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

// ForceReleaseByRun frees whatever slot the run still holds.
func (l *PostgresRunLocker) ForceReleaseByRun(ctx context.Context, runID uuid.UUID) error {
	if _, err := runnerFrom(ctx, l.db).ExecContext(ctx, `DELETE FROM run_locks WHERE run_id = $1`, runID); err != nil {
		return fmt.Errorf("force release lock: %w", err)
	}
	return nil
}
