package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"VideoCurator/internal/domain"
	"VideoCurator/internal/ports"
)

// PostgresKnowledgeRepository persists accepted videos into Postgres.
type PostgresKnowledgeRepository struct {
	db *sql.DB
}

var _ ports.KnowledgeRepository = (*PostgresKnowledgeRepository)(nil)

// NewPostgresKnowledgeRepository wires a sql.DB implementation.
func NewPostgresKnowledgeRepository(db *sql.DB) *PostgresKnowledgeRepository {
	return &PostgresKnowledgeRepository{db: db}
}

// ExistsBySourceURL reports whether the URL is already in the store.
func (r *PostgresKnowledgeRepository) ExistsBySourceURL(ctx context.Context, sourceURL string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM knowledge_records WHERE source_url = $1)`

	var exists bool
	if err := runnerFrom(ctx, r.db).QueryRowContext(ctx, query, sourceURL).Scan(&exists); err != nil {
		return false, fmt.Errorf("query source url: %w", err)
	}

	return exists, nil
}

// Insert stores the record. The unique index on source_url makes the
// insert a no-op for duplicates; the return value reports whether a row
// was actually written.
func (r *PostgresKnowledgeRepository) Insert(ctx context.Context, rec domain.KnowledgeRecord) (bool, error) {
	dims, err := json.Marshal(rec.Dimensions)
	if err != nil {
		return false, fmt.Errorf("marshal dimensions: %w", err)
	}

	query := `INSERT INTO knowledge_records
              (id, source_url, title, instructor, technique, duration_seconds,
               dimensions, final_score, boosts, reason, status, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
              ON CONFLICT (source_url) DO NOTHING`

	res, err := runnerFrom(ctx, r.db).ExecContext(ctx, query,
		rec.ID,
		rec.SourceURL,
		rec.Title,
		rec.InstructorName,
		rec.TechniqueName,
		rec.DurationSeconds,
		dims,
		rec.FinalScore,
		textArray(rec.BoostsApplied),
		rec.Reason,
		rec.Status,
		rec.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert record: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert record rows: %w", err)
	}

	return affected > 0, nil
}

// CountByTechnique counts live records covering a technique.
func (r *PostgresKnowledgeRepository) CountByTechnique(ctx context.Context, technique string) (int, error) {
	return r.count(ctx, sq.Eq{"technique": technique, "status": domain.RecordActive})
}

// CountByTechniqueAndInstructor counts live records a single instructor
// contributed for a technique.
func (r *PostgresKnowledgeRepository) CountByTechniqueAndInstructor(ctx context.Context, technique, instructor string) (int, error) {
	return r.count(ctx, sq.Eq{"technique": technique, "instructor": instructor, "status": domain.RecordActive})
}

func (r *PostgresKnowledgeRepository) count(ctx context.Context, where sq.Eq) (int, error) {
	query, args, err := psql.Select("COUNT(*)").From("knowledge_records").Where(where).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}

	var n int
	if err := runnerFrom(ctx, r.db).QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("query count: %w", err)
	}

	return n, nil
}

// ActiveRecords returns every record still marked active.
func (r *PostgresKnowledgeRepository) ActiveRecords(ctx context.Context) ([]domain.KnowledgeRecord, error) {
	query, args, err := psql.Select("id", "source_url", "title", "instructor", "technique",
		"duration_seconds", "dimensions", "final_score", "boosts", "reason", "status", "created_at").
		From("knowledge_records").
		Where(sq.Eq{"status": domain.RecordActive}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build active query: %w", err)
	}

	rows, err := runnerFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query active records: %w", err)
	}
	defer rows.Close()

	var records []domain.KnowledgeRecord
	for rows.Next() {
		var rec domain.KnowledgeRecord
		var dims []byte
		var boosts pq.StringArray

		err := rows.Scan(&rec.ID, &rec.SourceURL, &rec.Title, &rec.InstructorName, &rec.TechniqueName,
			&rec.DurationSeconds, &dims, &rec.FinalScore, &boosts, &rec.Reason, &rec.Status, &rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}

		if len(dims) > 0 {
			if err := json.Unmarshal(dims, &rec.Dimensions); err != nil {
				return nil, fmt.Errorf("unmarshal dimensions: %w", err)
			}
		}
		rec.BoostsApplied = []string(boosts)

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return records, nil
}

// MarkUnavailable flips the record status once the source video is gone.
func (r *PostgresKnowledgeRepository) MarkUnavailable(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE knowledge_records SET status = $1 WHERE id = $2`

	if _, err := runnerFrom(ctx, r.db).ExecContext(ctx, query, domain.RecordUnavailable, id); err != nil {
		return fmt.Errorf("mark unavailable: %w", err)
	}

	return nil
}

// textArray keeps empty lists as empty Postgres arrays instead of NULLs.
func textArray(list []string) pq.StringArray {
	if list == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(list)
}
