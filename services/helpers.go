package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Emerc92/futsapp-tournament-hub/models"
	"github.com/Emerc92/futsapp-tournament-hub/repositories"
	"github.com/Emerc92/futsapp-tournament-hub/storage"
)

// TxRunner runs a function inside a database transaction. Services depend on
// this instead of *sql.DB directly so tests can substitute a pass-through.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error
}

type sqlTxRunner struct {
	db *sql.DB
}

func NewSQLTxRunner(db *sql.DB) TxRunner {
	return &sqlTxRunner{db: db}
}

func (r *sqlTxRunner) RunInTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func isValidStatusTransition(current, next models.TournamentStatus) bool {
	if current == next {
		return true
	}
	allowedTransitions := map[models.TournamentStatus][]models.TournamentStatus{
		models.StatusDraft:     {models.StatusOpen, models.StatusCancelled},
		models.StatusOpen:      {models.StatusClosed, models.StatusCancelled},
		models.StatusClosed:    {models.StatusOngoing, models.StatusCancelled},
		models.StatusOngoing:   {models.StatusCompleted, models.StatusCancelled},
		models.StatusCompleted: {},
		models.StatusCancelled: {},
	}
	for _, allowed := range allowedTransitions[current] {
		if next == allowed {
			return true
		}
	}
	return false
}

// defaultKickoff picks the kickoff time for generated fixtures: the
// tournament start date, or a short grace period from now when the start
// date has already passed.
func defaultKickoff(t *models.Tournament) time.Time {
	if time.Now().After(t.StartDate) {
		return time.Now().Add(15 * time.Minute).UTC()
	}
	return t.StartDate
}

func populateLogoURL(uploader storage.FileUploader, logoKey *string) *string {
	if uploader == nil || logoKey == nil || *logoKey == "" {
		return nil
	}
	url := uploader.GetPublicURL(*logoKey)
	if url == "" {
		return nil
	}
	return &url
}
