package repository

import (
	"context"
	"database/sql"
	"fmt"

	"codewars_portal/internal/common"
	"codewars_portal/internal/domain/model"
)

type SubmissionRepository interface {
	// Create appends one record and fills in rec.CreatedAt from the store.
	Create(ctx context.Context, rec *model.SubmissionRecord) error
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

// created_at is never earlier than the team's latest record plus one microsecond, so
// timestamps stay strictly increasing per team even when the clock steps back.
const insertSubmissionQuery = `INSERT INTO submissions (id, team_code, email, code, language, output, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, GREATEST(
		clock_timestamp(),
		COALESCE((SELECT MAX(created_at) FROM submissions WHERE team_code = $2), '-infinity'::timestamptz) + INTERVAL '1 microsecond'
	))
	RETURNING created_at`

func (r *pgSubmissionRepository) Create(ctx context.Context, rec *model.SubmissionRecord) error {
	err := r.db.QueryRowContext(ctx, insertSubmissionQuery,
		rec.ID, rec.TeamCode, rec.Email, rec.Code, rec.Language, rec.Output,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.Create: %v: %w", err, common.ErrPersistence)
	}
	return nil
}
