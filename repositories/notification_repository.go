package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Emerc92/futsapp-tournament-hub/models"
)

var ErrNotificationNotFound = errors.New("notification not found")

type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByTournament(ctx context.Context, tournamentID string, limit int) ([]models.Notification, error)
}

type postgresNotificationRepository struct {
	db *sql.DB
}

func NewPostgresNotificationRepository(db *sql.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

func (r *postgresNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (id, tournament_id, organizer_id, message)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	return r.db.QueryRowContext(ctx, query,
		n.ID, n.TournamentID, n.OrganizerID, n.Message,
	).Scan(&n.CreatedAt)
}

func (r *postgresNotificationRepository) ListByTournament(ctx context.Context, tournamentID string, limit int) ([]models.Notification, error) {
	query := `
		SELECT id, tournament_id, organizer_id, message, created_at
		FROM notifications
		WHERE tournament_id = $1
		ORDER BY created_at DESC`
	args := []interface{}{tournamentID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]models.Notification, 0)
	for rows.Next() {
		var n models.Notification
		if scanErr := rows.Scan(&n.ID, &n.TournamentID, &n.OrganizerID, &n.Message, &n.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}
