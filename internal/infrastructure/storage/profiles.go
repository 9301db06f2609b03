package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"VideoCurator/internal/domain"
	"VideoCurator/internal/ports"
)

// PostgresProfileRepository keeps per-user learning profiles.
type PostgresProfileRepository struct {
	db *sql.DB
}

var _ ports.ProfileRepository = (*PostgresProfileRepository)(nil)

// NewPostgresProfileRepository wires a sql.DB implementation.
func NewPostgresProfileRepository(db *sql.DB) *PostgresProfileRepository {
	return &PostgresProfileRepository{db: db}
}

// Get loads one user's profile. Returns nil when the user has none yet.
func (r *PostgresProfileRepository) Get(ctx context.Context, userID string) (*domain.UserLearningProfile, error) {
	query := `SELECT user_id, favorite_instructors, avoided_instructors, preferred_techniques, updated_at
              FROM user_learning_profiles WHERE user_id = $1`

	var profile domain.UserLearningProfile
	var favorites, avoided, techniques pq.StringArray

	err := runnerFrom(ctx, r.db).QueryRowContext(ctx, query, userID).Scan(
		&profile.UserID,
		&favorites,
		&avoided,
		&techniques,
		&profile.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query profile: %w", err)
	}

	profile.FavoriteInstructors = []string(favorites)
	profile.AvoidInstructors = []string(avoided)
	profile.PreferredTechniques = []string(techniques)

	return &profile, nil
}

// Upsert writes the profile, replacing all three preference lists.
func (r *PostgresProfileRepository) Upsert(ctx context.Context, profile domain.UserLearningProfile) error {
	query := `INSERT INTO user_learning_profiles
              (user_id, favorite_instructors, avoided_instructors, preferred_techniques, updated_at)
              VALUES ($1, $2, $3, $4, $5)
              ON CONFLICT (user_id) DO UPDATE
              SET favorite_instructors = EXCLUDED.favorite_instructors,
                  avoided_instructors = EXCLUDED.avoided_instructors,
                  preferred_techniques = EXCLUDED.preferred_techniques,
                  updated_at = EXCLUDED.updated_at`

	_, err := runnerFrom(ctx, r.db).ExecContext(ctx, query,
		profile.UserID,
		textArray(profile.FavoriteInstructors),
		textArray(profile.AvoidInstructors),
		textArray(profile.PreferredTechniques),
		profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}

	return nil
}
