package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Emerc92/futsapp-tournament-hub/brackets"
	"github.com/Emerc92/futsapp-tournament-hub/models"
	"github.com/Emerc92/futsapp-tournament-hub/repositories"
)

type NotificationService interface {
	// Send stores an organizer announcement and pushes it to the
	// tournament's websocket room.
	Send(ctx context.Context, actor Actor, tournamentID string, message string) (*models.Notification, error)
	ListByTournament(ctx context.Context, tournamentID string, limit int) ([]models.Notification, error)
}

type notificationService struct {
	notificationRepo repositories.NotificationRepository
	tournamentRepo   repositories.TournamentRepository
	hub              *brackets.Hub
	logger           *slog.Logger
}

func NewNotificationService(
	notificationRepo repositories.NotificationRepository,
	tournamentRepo repositories.TournamentRepository,
	hub *brackets.Hub,
	logger *slog.Logger,
) NotificationService {
	return &notificationService{
		notificationRepo: notificationRepo,
		tournamentRepo:   tournamentRepo,
		hub:              hub,
		logger:           logger,
	}
}

func (s *notificationService) Send(ctx context.Context, actor Actor, tournamentID string, message string) (*models.Notification, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrNotificationEmpty
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament: %w", err)
	}
	if actor.UserID != tournament.OrganizerID {
		return nil, ErrOrganizerOnly
	}

	notification := &models.Notification{
		ID:           uuid.NewString(),
		TournamentID: tournamentID,
		OrganizerID:  actor.UserID,
		Message:      message,
	}
	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		return nil, fmt.Errorf("failed to store notification: %w", err)
	}

	if s.hub != nil {
		s.hub.BroadcastToRoom(brackets.Event{
			Type:         eventOrganizerNotification,
			TournamentID: tournamentID,
			Payload:      notification,
		})
	}

	s.logger.InfoContext(ctx, "notification sent",
		slog.String("tournament_id", tournamentID),
		slog.String("notification_id", notification.ID),
	)
	return notification, nil
}

func (s *notificationService) ListByTournament(ctx context.Context, tournamentID string, limit int) ([]models.Notification, error) {
	notifications, err := s.notificationRepo.ListByTournament(ctx, tournamentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}
