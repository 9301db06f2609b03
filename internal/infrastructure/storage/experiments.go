package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"VideoCurator/internal/domain"
	"VideoCurator/internal/ports"
)

// PostgresExperimentRepository stores A/B experiments and their verdicts.
type PostgresExperimentRepository struct {
	db *sql.DB
}

var _ ports.ExperimentRepository = (*PostgresExperimentRepository)(nil)

// NewPostgresExperimentRepository wires a sql.DB implementation.
func NewPostgresExperimentRepository(db *sql.DB) *PostgresExperimentRepository {
	return &PostgresExperimentRepository{db: db}
}

// Create registers a new experiment between two variants.
func (r *PostgresExperimentRepository) Create(ctx context.Context, exp domain.ABTestExperiment) error {
	query := `INSERT INTO ab_experiments
              (id, name, control_variant, treatment_variant, status, created_at)
              VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := runnerFrom(ctx, r.db).ExecContext(ctx, query,
		exp.ID,
		exp.Name,
		exp.ControlVariant,
		exp.TreatmentVariant,
		exp.Status,
		exp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert experiment: %w", err)
	}

	return nil
}

// GetByName loads one experiment. Returns nil when none exists.
func (r *PostgresExperimentRepository) GetByName(ctx context.Context, name string) (*domain.ABTestExperiment, error) {
	query := `SELECT id, name, control_variant, treatment_variant,
                     control_engagement, treatment_engagement,
                     control_satisfaction, treatment_satisfaction,
                     control_samples, treatment_samples,
                     winner, status, created_at, completed_at
              FROM ab_experiments WHERE name = $1`

	var exp domain.ABTestExperiment
	var winner sql.NullString
	var completedAt sql.NullTime

	err := runnerFrom(ctx, r.db).QueryRowContext(ctx, query, name).Scan(
		&exp.ID,
		&exp.Name,
		&exp.ControlVariant,
		&exp.TreatmentVariant,
		&exp.ControlEngagement,
		&exp.TreatmentEngagement,
		&exp.ControlSatisfaction,
		&exp.TreatmentSatisfaction,
		&exp.ControlSamples,
		&exp.TreatmentSamples,
		&winner,
		&exp.Status,
		&exp.CreatedAt,
		&completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query experiment: %w", err)
	}

	exp.Winner = domain.ABWinner(winner.String)
	if completedAt.Valid {
		t := completedAt.Time
		exp.CompletedAt = &t
	}

	return &exp, nil
}

// Complete records the comparison result and closes the experiment.
func (r *PostgresExperimentRepository) Complete(ctx context.Context, exp domain.ABTestExperiment) error {
	if exp.CompletedAt == nil {
		return fmt.Errorf("experiment %s has no completion time", exp.Name)
	}

	query := `UPDATE ab_experiments
              SET control_engagement = $1,
                  treatment_engagement = $2,
                  control_satisfaction = $3,
                  treatment_satisfaction = $4,
                  control_samples = $5,
                  treatment_samples = $6,
                  winner = $7,
                  status = $8,
                  completed_at = $9
              WHERE id = $10`

	_, err := runnerFrom(ctx, r.db).ExecContext(ctx, query,
		exp.ControlEngagement,
		exp.TreatmentEngagement,
		exp.ControlSatisfaction,
		exp.TreatmentSatisfaction,
		exp.ControlSamples,
		exp.TreatmentSamples,
		exp.Winner,
		domain.ExperimentCompleted,
		*exp.CompletedAt,
		exp.ID,
	)
	if err != nil {
		return fmt.Errorf("complete experiment: %w", err)
	}

	return nil
}
