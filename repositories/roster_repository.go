package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Emerc92/futsapp-tournament-hub/models"
	"github.com/lib/pq"
)

var (
	ErrRosterEntryNotFound = errors.New("roster entry not found")
	ErrRosterUserConflict  = errors.New("user is already on this roster")
)

type RosterRepository interface {
	Create(ctx context.Context, exec SQLExecutor, member *models.TeamMember) error
	CreateBatch(ctx context.Context, exec SQLExecutor, members []*models.TeamMember) error
	ListByTeam(ctx context.Context, teamID string) ([]models.TeamMember, error)
	Delete(ctx context.Context, exec SQLExecutor, id string) error
	DeleteByTeam(ctx context.Context, exec SQLExecutor, teamID string) error
}

type postgresRosterRepository struct {
	db *sql.DB
}

func NewPostgresRosterRepository(db *sql.DB) RosterRepository {
	return &postgresRosterRepository{db: db}
}

func (r *postgresRosterRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresRosterRepository) Create(ctx context.Context, exec SQLExecutor, m *models.TeamMember) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO team_members (id, team_id, user_id, jersey_number, position, is_captain)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := executor.QueryRowContext(ctx, query,
		m.ID, m.TeamID, m.UserID, m.JerseyNumber, m.Position, m.IsCaptain,
	).Scan(&m.CreatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrRosterUserConflict
	}
	return err
}

func (r *postgresRosterRepository) CreateBatch(ctx context.Context, exec SQLExecutor, members []*models.TeamMember) error {
	for _, m := range members {
		if err := r.Create(ctx, exec, m); err != nil {
			return err
		}
	}
	return nil
}

func (r *postgresRosterRepository) ListByTeam(ctx context.Context, teamID string) ([]models.TeamMember, error) {
	query := `
		SELECT id, team_id, user_id, jersey_number, position, is_captain, created_at
		FROM team_members
		WHERE team_id = $1
		ORDER BY is_captain DESC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]models.TeamMember, 0)
	for rows.Next() {
		var m models.TeamMember
		if scanErr := rows.Scan(
			&m.ID, &m.TeamID, &m.UserID, &m.JerseyNumber, &m.Position, &m.IsCaptain, &m.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *postgresRosterRepository) Delete(ctx context.Context, exec SQLExecutor, id string) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `DELETE FROM team_members WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRosterEntryNotFound)
}

func (r *postgresRosterRepository) DeleteByTeam(ctx context.Context, exec SQLExecutor, teamID string) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM team_members WHERE team_id = $1`, teamID)
	return err
}
