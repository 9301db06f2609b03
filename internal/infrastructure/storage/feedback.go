package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"VideoCurator/internal/domain"
	"VideoCurator/internal/ports"
)

// PostgresFeedbackRepository appends and reads immutable feedback events.
type PostgresFeedbackRepository struct {
	db *sql.DB
}

var _ ports.FeedbackRepository = (*PostgresFeedbackRepository)(nil)

// NewPostgresFeedbackRepository wires a sql.DB implementation.
func NewPostgresFeedbackRepository(db *sql.DB) *PostgresFeedbackRepository {
	return &PostgresFeedbackRepository{db: db}
}

// Append stores one event. Events are never updated or deleted.
func (r *PostgresFeedbackRepository) Append(ctx context.Context, ev domain.FeedbackEvent) error {
	query := `INSERT INTO feedback_events (user_id, video_id, instructor, technique, action, created_at)
              VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := runnerFrom(ctx, r.db).ExecContext(ctx, query,
		ev.UserID,
		ev.VideoID,
		ev.InstructorName,
		ev.TechniqueName,
		ev.Action,
		ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert feedback event: %w", err)
	}

	return nil
}

// UserTechniqueEvents returns one user's events for a technique since the cutoff.
func (r *PostgresFeedbackRepository) UserTechniqueEvents(ctx context.Context, userID, technique string, since time.Time) ([]domain.FeedbackEvent, error) {
	return r.query(ctx, sq.And{
		sq.Eq{"user_id": userID, "technique": technique},
		sq.GtOrEq{"created_at": since},
	})
}

// InstructorOrTechniqueEvents returns events touching either the instructor
// or the technique since the cutoff.
func (r *PostgresFeedbackRepository) InstructorOrTechniqueEvents(ctx context.Context, instructor, technique string, since time.Time) ([]domain.FeedbackEvent, error) {
	return r.query(ctx, sq.And{
		sq.Or{sq.Eq{"instructor": instructor}, sq.Eq{"technique": technique}},
		sq.GtOrEq{"created_at": since},
	})
}

// EventsBetween returns all events in the half-open interval [from, to).
func (r *PostgresFeedbackRepository) EventsBetween(ctx context.Context, from, to time.Time) ([]domain.FeedbackEvent, error) {
	return r.query(ctx, sq.And{
		sq.GtOrEq{"created_at": from},
		sq.Lt{"created_at": to},
	})
}

func (r *PostgresFeedbackRepository) query(ctx context.Context, where sq.Sqlizer) ([]domain.FeedbackEvent, error) {
	query, args, err := psql.Select("id", "user_id", "video_id", "instructor", "technique", "action", "created_at").
		From("feedback_events").
		Where(where).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build feedback query: %w", err)
	}

	rows, err := runnerFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query feedback events: %w", err)
	}
	defer rows.Close()

	var events []domain.FeedbackEvent
	for rows.Next() {
		var ev domain.FeedbackEvent
		err := rows.Scan(&ev.ID, &ev.UserID, &ev.VideoID, &ev.InstructorName, &ev.TechniqueName, &ev.Action, &ev.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan feedback event: %w", err)
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return events, nil
}
