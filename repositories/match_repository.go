package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Emerc92/futsapp-tournament-hub/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound        = errors.New("match not found")
	ErrMatchVersionConflict = errors.New("match was modified concurrently")
	ErrMatchInvalidTeam     = errors.New("match references an invalid team")
	ErrMatchSlotConflict    = errors.New("a match already occupies this bracket slot")
)

type ListMatchesFilter struct {
	Phase  *models.MatchPhase
	Round  *int
	Status *models.MatchStatus
}

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, id string) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID string, filter ListMatchesFilter) ([]models.Match, error)
	FindBySlot(ctx context.Context, exec SQLExecutor, tournamentID string, round, slot int) (*models.Match, error)
	// UpdateResult applies a result with compare-and-set semantics: it only
	// writes when the stored version equals expectedVersion, and bumps the
	// version on success. A lost race yields ErrMatchVersionConflict.
	UpdateResult(ctx context.Context, exec SQLExecutor, id string, expectedVersion int, homeScore, awayScore int, winnerTeamID *string) error
	SetSlotTeam(ctx context.Context, exec SQLExecutor, id string, home bool, teamID string) error
	Cancel(ctx context.Context, exec SQLExecutor, id string) error
	CancelScheduledByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	id, tournament_id, phase, round, slot, group_label, home_team_id, away_team_id,
	kickoff_time, venue, status, home_score, away_score, winner_team_id, version,
	created_at, updated_at`

func scanMatch(row interface{ Scan(...interface{}) error }, m *models.Match) error {
	return row.Scan(
		&m.ID, &m.TournamentID, &m.Phase, &m.Round, &m.Slot, &m.GroupLabel, &m.HomeTeamID, &m.AwayTeamID,
		&m.KickoffTime, &m.Venue, &m.Status, &m.HomeScore, &m.AwayScore, &m.WinnerTeamID, &m.Version,
		&m.CreatedAt, &m.UpdatedAt,
	)
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO matches (
			id, tournament_id, phase, round, slot, group_label, home_team_id, away_team_id,
			kickoff_time, venue, status, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1)
		RETURNING version, created_at, updated_at`

	err := executor.QueryRowContext(ctx, query,
		m.ID, m.TournamentID, m.Phase, m.Round, m.Slot, m.GroupLabel, m.HomeTeamID, m.AwayTeamID,
		m.KickoffTime, m.Venue, m.Status,
	).Scan(&m.Version, &m.CreatedAt, &m.UpdatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id string) (*models.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches WHERE id = $1`

	m := &models.Match{}
	if err := scanMatch(r.db.QueryRowContext(ctx, query, id), m); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID string, filter ListMatchesFilter) ([]models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT` + matchColumns + ` FROM matches WHERE tournament_id = $1`)

	args := []interface{}{tournamentID}
	placeholder := 2

	appendClause := func(column string, value interface{}) {
		queryBuilder.WriteString(" AND " + column + " = $" + strconv.Itoa(placeholder))
		args = append(args, value)
		placeholder++
	}
	if filter.Phase != nil {
		appendClause("phase", *filter.Phase)
	}
	if filter.Round != nil {
		appendClause("round", *filter.Round)
	}
	if filter.Status != nil {
		appendClause("status", *filter.Status)
	}

	queryBuilder.WriteString(" ORDER BY phase ASC, round ASC, slot ASC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]models.Match, 0)
	for rows.Next() {
		var m models.Match
		if scanErr := scanMatch(rows, &m); scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *postgresMatchRepository) FindBySlot(ctx context.Context, exec SQLExecutor, tournamentID string, round, slot int) (*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + matchColumns + `
		FROM matches
		WHERE tournament_id = $1 AND phase = $2 AND round = $3 AND slot = $4`

	m := &models.Match{}
	err := scanMatch(executor.QueryRowContext(ctx, query, tournamentID, models.PhaseKnockout, round, slot), m)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) UpdateResult(ctx context.Context, exec SQLExecutor, id string, expectedVersion int, homeScore, awayScore int, winnerTeamID *string) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE matches SET
			home_score = $1, away_score = $2, winner_team_id = $3,
			status = $4, version = version + 1, updated_at = NOW()
		WHERE id = $5 AND version = $6`

	result, err := executor.ExecContext(ctx, query,
		homeScore, awayScore, winnerTeamID, models.MatchStatusCompleted, id, expectedVersion,
	)
	if err != nil {
		return r.handleMatchError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// Zero rows: either the match is gone or someone else won the race.
	var exists bool
	if err := executor.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM matches WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrMatchNotFound
	}
	return ErrMatchVersionConflict
}

func (r *postgresMatchRepository) SetSlotTeam(ctx context.Context, exec SQLExecutor, id string, home bool, teamID string) error {
	executor := r.getExecutor(exec)
	column := "away_team_id"
	if home {
		column = "home_team_id"
	}
	query := `UPDATE matches SET ` + column + ` = $1, version = version + 1, updated_at = NOW() WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, teamID, id)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) Cancel(ctx context.Context, exec SQLExecutor, id string) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE matches SET status = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND status = $3`
	result, err := executor.ExecContext(ctx, query, models.MatchStatusCancelled, id, models.MatchStatusScheduled)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) CancelScheduledByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE matches SET status = $1, version = version + 1, updated_at = NOW()
		WHERE tournament_id = $2 AND status = $3`
	_, err := executor.ExecContext(ctx, query, models.MatchStatusCancelled, tournamentID, models.MatchStatusScheduled)
	return err
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "matches_tournament_id_phase_round_slot_key" {
				return ErrMatchSlotConflict
			}
		case "23503":
			return ErrMatchInvalidTeam
		}
	}
	return err
}
