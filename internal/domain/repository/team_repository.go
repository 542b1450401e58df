package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"codewars_portal/internal/common"
	"codewars_portal/internal/domain/model"
)

// TeamRepository reads registrations. Teams are created by the registration flow,
// never here.
type TeamRepository interface {
	FindByCode(ctx context.Context, code string) (*model.Team, error)
}

type pgTeamRepository struct {
	db *sql.DB
}

func NewPgTeamRepository(db *sql.DB) TeamRepository {
	return &pgTeamRepository{db: db}
}

func (r *pgTeamRepository) FindByCode(ctx context.Context, code string) (*model.Team, error) {
	query := `SELECT id, team_code, team_type, created_at FROM registrations WHERE team_code = $1`
	team := &model.Team{}
	err := r.db.QueryRowContext(ctx, query, code).Scan(&team.ID, &team.Code, &team.Type, &team.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgTeamRepository.FindByCode: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT name, email FROM participants WHERE registration_id = $1 ORDER BY position`, team.ID)
	if err != nil {
		return nil, fmt.Errorf("pgTeamRepository.FindByCode participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.Name, &p.Email); err != nil {
			return nil, fmt.Errorf("pgTeamRepository.FindByCode scan participant: %w", err)
		}
		team.Participants = append(team.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgTeamRepository.FindByCode rows: %w", err)
	}
	return team, nil
}
