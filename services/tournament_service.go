package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Emerc92/futsapp-tournament-hub/brackets"
	"github.com/Emerc92/futsapp-tournament-hub/models"
	"github.com/Emerc92/futsapp-tournament-hub/repositories"
	"github.com/Emerc92/futsapp-tournament-hub/storage"
)

// WebSocket event types pushed to tournament rooms.
const (
	eventMatchResultRecorded   = "MATCH_RESULT_RECORDED"
	eventStandingsUpdated      = "STANDINGS_UPDATED"
	eventBracketUpdated        = "BRACKET_UPDATED"
	eventTournamentStatus      = "TOURNAMENT_STATUS_CHANGED"
	eventTournamentCompleted   = "TOURNAMENT_COMPLETED"
	eventOrganizerNotification = "ORGANIZER_NOTIFICATION"
)

type CreateTournamentInput struct {
	Name        string                  `json:"name"`
	City        string                  `json:"city"`
	Format      models.TournamentFormat `json:"format"`
	SportKind   models.SportKind        `json:"sport_kind"`
	Capacity    int                     `json:"capacity"`
	EntryFee    float64                 `json:"entry_fee"`
	MatchPrice  *float64                `json:"match_price"`
	StartDate   time.Time               `json:"start_date"`
	EndDate     *time.Time              `json:"end_date"`
	RegDeadline time.Time               `json:"reg_deadline"`
	Rules       json.RawMessage         `json:"rules"`
}

type UpdateTournamentInput struct {
	Name        *string         `json:"name"`
	City        *string         `json:"city"`
	Capacity    *int            `json:"capacity"`
	EntryFee    *float64        `json:"entry_fee"`
	MatchPrice  *float64        `json:"match_price"`
	StartDate   *time.Time      `json:"start_date"`
	EndDate     *time.Time      `json:"end_date"`
	RegDeadline *time.Time      `json:"reg_deadline"`
	Rules       json.RawMessage `json:"rules"`
}

type TournamentService interface {
	Create(ctx context.Context, actor Actor, input CreateTournamentInput) (*models.Tournament, error)
	GetByID(ctx context.Context, id string) (*models.Tournament, error)
	List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	Update(ctx context.Context, actor Actor, id string, input UpdateTournamentInput) (*models.Tournament, error)
	Delete(ctx context.Context, actor Actor, id string) error
	// UpdateStatus drives the tournament lifecycle. Moving to ongoing
	// generates and persists the full fixture list for the tournament's
	// format; moving to cancelled cancels every scheduled match.
	UpdateStatus(ctx context.Context, actor Actor, id string, next models.TournamentStatus) (*models.Tournament, error)
	GetStandings(ctx context.Context, id string) ([]models.Standing, error)
	GetBracket(ctx context.Context, id string) ([]models.BracketNode, error)
	// StartKnockoutStage seeds and persists the knockout bracket of a mixed
	// format tournament once every group match has finished.
	StartKnockoutStage(ctx context.Context, actor Actor, id string) ([]models.Match, error)
	UploadLogo(ctx context.Context, actor Actor, id string, contentType string, reader io.Reader) (*models.Tournament, error)
}

type tournamentService struct {
	txRunner       TxRunner
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	matchRepo      repositories.MatchRepository
	userRepo       repositories.UserRepository
	uploader       storage.FileUploader
	cache          *ViewCache
	hub            *brackets.Hub
	logger         *slog.Logger
	groupSize      int
}

func NewTournamentService(
	txRunner TxRunner,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	userRepo repositories.UserRepository,
	uploader storage.FileUploader,
	cache *ViewCache,
	hub *brackets.Hub,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		txRunner:       txRunner,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		matchRepo:      matchRepo,
		userRepo:       userRepo,
		uploader:       uploader,
		cache:          cache,
		hub:            hub,
		logger:         logger,
		groupSize:      brackets.DefaultGroupSize,
	}
}

func (s *tournamentService) Create(ctx context.Context, actor Actor, input CreateTournamentInput) (*models.Tournament, error) {
	if actor.Role != models.RoleOrganizer {
		return nil, ErrOrganizerOnly
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrTournamentNameRequired
	}
	if !input.Format.Valid() {
		return nil, ErrTournamentInvalidFormat
	}
	if !input.SportKind.Valid() {
		return nil, ErrTournamentInvalidSport
	}
	if input.Capacity < 2 {
		return nil, ErrTournamentInvalidCap
	}
	if input.EntryFee < 0 || (input.MatchPrice != nil && *input.MatchPrice < 0) {
		return nil, ErrTournamentInvalidFee
	}
	if input.RegDeadline.After(input.StartDate) {
		return nil, ErrTournamentInvalidDates
	}
	if input.EndDate != nil && input.EndDate.Before(input.StartDate) {
		return nil, ErrTournamentInvalidDates
	}

	tournament := &models.Tournament{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(input.Name),
		City:        strings.TrimSpace(input.City),
		Format:      input.Format,
		SportKind:   input.SportKind,
		Capacity:    input.Capacity,
		EntryFee:    input.EntryFee,
		MatchPrice:  input.MatchPrice,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		RegDeadline: input.RegDeadline,
		Rules:       input.Rules,
		Status:      models.StatusDraft,
		OrganizerID: actor.UserID,
	}

	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		switch {
		case errors.Is(err, repositories.ErrTournamentNameConflict):
			return nil, ErrTournamentNameConflict
		case errors.Is(err, repositories.ErrTournamentInvalidOrg):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	s.logger.InfoContext(ctx, "tournament created",
		slog.String("tournament_id", tournament.ID),
		slog.String("organizer_id", actor.UserID),
		slog.String("format", string(tournament.Format)),
	)
	return tournament, nil
}

func (s *tournamentService) GetByID(ctx context.Context, id string) (*models.Tournament, error) {
	tournament, err := s.getTournament(ctx, id)
	if err != nil {
		return nil, err
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		teams, err := s.teamRepo.ListByTournament(gCtx, id)
		if err != nil {
			return fmt.Errorf("failed to list teams: %w", err)
		}
		for i := range teams {
			teams[i].LogoURL = populateLogoURL(s.uploader, teams[i].LogoKey)
		}
		tournament.Teams = teams
		return nil
	})

	g.Go(func() error {
		matches, err := s.matchRepo.ListByTournament(gCtx, id, repositories.ListMatchesFilter{})
		if err != nil {
			return fmt.Errorf("failed to list matches: %w", err)
		}
		tournament.Matches = matches
		return nil
	})

	g.Go(func() error {
		organizer, err := s.userRepo.GetByID(gCtx, tournament.OrganizerID)
		if err != nil {
			// The tournament view is still useful without the organizer card.
			s.logger.WarnContext(gCtx, "failed to load organizer",
				slog.String("tournament_id", id),
				slog.Any("error", err),
			)
			return nil
		}
		organizer.PasswordHash = ""
		tournament.Organizer = organizer
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	tournament.LogoURL = populateLogoURL(s.uploader, tournament.LogoKey)
	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	for i := range tournaments {
		tournaments[i].LogoURL = populateLogoURL(s.uploader, tournaments[i].LogoKey)
	}
	return tournaments, nil
}

func (s *tournamentService) Update(ctx context.Context, actor Actor, id string, input UpdateTournamentInput) (*models.Tournament, error) {
	tournament, err := s.getTournament(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireOrganizer(actor, tournament); err != nil {
		return nil, err
	}
	// Details freeze once the competition leaves the registration phase.
	if tournament.Status != models.StatusDraft && tournament.Status != models.StatusOpen {
		return nil, ErrTournamentLocked
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, ErrTournamentNameRequired
		}
		tournament.Name = strings.TrimSpace(*input.Name)
	}
	if input.City != nil {
		tournament.City = strings.TrimSpace(*input.City)
	}
	if input.Capacity != nil {
		if *input.Capacity < 2 {
			return nil, ErrTournamentInvalidCap
		}
		count, err := s.teamRepo.CountByTournament(ctx, nil, id)
		if err != nil {
			return nil, fmt.Errorf("failed to count teams: %w", err)
		}
		if *input.Capacity < count {
			return nil, ErrCapacityExceeded
		}
		tournament.Capacity = *input.Capacity
	}
	if input.EntryFee != nil {
		if *input.EntryFee < 0 {
			return nil, ErrTournamentInvalidFee
		}
		tournament.EntryFee = *input.EntryFee
	}
	if input.MatchPrice != nil {
		if *input.MatchPrice < 0 {
			return nil, ErrTournamentInvalidFee
		}
		tournament.MatchPrice = input.MatchPrice
	}
	if input.StartDate != nil {
		tournament.StartDate = *input.StartDate
	}
	if input.EndDate != nil {
		tournament.EndDate = input.EndDate
	}
	if input.RegDeadline != nil {
		tournament.RegDeadline = *input.RegDeadline
	}
	if input.Rules != nil {
		tournament.Rules = input.Rules
	}
	if tournament.RegDeadline.After(tournament.StartDate) {
		return nil, ErrTournamentInvalidDates
	}
	if tournament.EndDate != nil && tournament.EndDate.Before(tournament.StartDate) {
		return nil, ErrTournamentInvalidDates
	}

	if err := s.tournamentRepo.Update(ctx, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, ErrTournamentNameConflict
		}
		return nil, fmt.Errorf("failed to update tournament: %w", err)
	}
	return tournament, nil
}

func (s *tournamentService) Delete(ctx context.Context, actor Actor, id string) error {
	tournament, err := s.getTournament(ctx, id)
	if err != nil {
		return err
	}
	if err := requireOrganizer(actor, tournament); err != nil {
		return err
	}
	if tournament.Status != models.StatusDraft {
		return ErrTournamentLocked
	}
	if err := s.tournamentRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrTournamentInUse) {
			return ErrTournamentLocked
		}
		return fmt.Errorf("failed to delete tournament: %w", err)
	}
	return nil
}

func (s *tournamentService) UpdateStatus(ctx context.Context, actor Actor, id string, next models.TournamentStatus) (*models.Tournament, error) {
	tournament, err := s.getTournament(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireOrganizer(actor, tournament); err != nil {
		return nil, err
	}
	if !next.Valid() || !isValidStatusTransition(tournament.Status, next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, tournament.Status, next)
	}
	if tournament.Status == next {
		return tournament, nil
	}

	switch next {
	case models.StatusOngoing:
		if err := s.startTournament(ctx, tournament); err != nil {
			return nil, err
		}
	case models.StatusCancelled:
		err := s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
			if err := s.matchRepo.CancelScheduledByTournament(ctx, exec, id); err != nil {
				return fmt.Errorf("failed to cancel scheduled matches: %w", err)
			}
			return s.tournamentRepo.UpdateStatus(ctx, exec, id, next)
		})
		if err != nil {
			return nil, err
		}
	default:
		if err := s.tournamentRepo.UpdateStatus(ctx, nil, id, next); err != nil {
			return nil, fmt.Errorf("failed to update tournament status: %w", err)
		}
	}

	tournament.Status = next
	s.cache.Invalidate(id)
	s.broadcast(eventTournamentStatus, id, map[string]any{"status": next})
	s.logger.InfoContext(ctx, "tournament status changed",
		slog.String("tournament_id", id),
		slog.String("status", string(next)),
	)
	return tournament, nil
}

// startTournament generates the fixture list for the tournament's format and
// persists it together with the status flip in one transaction.
func (s *tournamentService) startTournament(ctx context.Context, tournament *models.Tournament) error {
	teams, err := s.teamRepo.ListByTournament(ctx, tournament.ID)
	if err != nil {
		return fmt.Errorf("failed to list teams: %w", err)
	}

	generator := s.generatorFor(tournament.Format)
	pairings, err := generator.Generate(ctx, brackets.GenerateParams{
		Tournament: tournament,
		Teams:      teams,
	})
	if err != nil {
		if errors.Is(err, brackets.ErrNotEnoughTeams) {
			return fmt.Errorf("%w: %v", ErrValidationFailed, err)
		}
		return fmt.Errorf("fixture generation failed: %w", err)
	}

	matches := s.pairingsToMatches(tournament, pairings)
	return s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		for _, match := range matches {
			if err := s.matchRepo.Create(ctx, exec, match); err != nil {
				return fmt.Errorf("failed to persist fixture: %w", err)
			}
		}
		return s.tournamentRepo.UpdateStatus(ctx, exec, tournament.ID, models.StatusOngoing)
	})
}

func (s *tournamentService) GetStandings(ctx context.Context, id string) ([]models.Standing, error) {
	tournament, err := s.getTournament(ctx, id)
	if err != nil {
		return nil, err
	}
	if !tournament.Format.HasGroupStage() {
		return nil, ErrStandingsNotAvailable
	}
	if rows, ok := s.cache.GetStandings(id); ok {
		return rows, nil
	}

	teams, err := s.teamRepo.ListByTournament(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	phase := models.PhaseGroup
	matches, err := s.matchRepo.ListByTournament(ctx, id, repositories.ListMatchesFilter{Phase: &phase})
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}

	var rows []models.Standing
	if tournament.Format == models.FormatMixed {
		rows = brackets.GroupStandings(brackets.SplitIntoGroups(teams, s.groupSize), matches)
	} else {
		rows = brackets.ComputeStandings(teams, matches)
	}
	s.cache.PutStandings(id, rows)
	return rows, nil
}

func (s *tournamentService) GetBracket(ctx context.Context, id string) ([]models.BracketNode, error) {
	tournament, err := s.getTournament(ctx, id)
	if err != nil {
		return nil, err
	}
	if !tournament.Format.HasKnockoutStage() {
		return nil, ErrBracketNotAvailable
	}
	if nodes, ok := s.cache.GetBracket(id); ok {
		return nodes, nil
	}

	phase := models.PhaseKnockout
	matches, err := s.matchRepo.ListByTournament(ctx, id, repositories.ListMatchesFilter{Phase: &phase})
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}

	nodes := brackets.BuildBracket(matches)
	s.cache.PutBracket(id, nodes)
	return nodes, nil
}

func (s *tournamentService) StartKnockoutStage(ctx context.Context, actor Actor, id string) ([]models.Match, error) {
	tournament, err := s.getTournament(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireOrganizer(actor, tournament); err != nil {
		return nil, err
	}
	if tournament.Format != models.FormatMixed {
		return nil, ErrBracketNotAvailable
	}
	if tournament.Status != models.StatusOngoing {
		return nil, ErrTournamentNotOngoing
	}

	phase := models.PhaseKnockout
	existing, err := s.matchRepo.ListByTournament(ctx, id, repositories.ListMatchesFilter{Phase: &phase})
	if err != nil {
		return nil, fmt.Errorf("failed to list knockout matches: %w", err)
	}
	if len(existing) > 0 {
		return nil, ErrKnockoutAlreadyStarted
	}

	teams, err := s.teamRepo.ListByTournament(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	groupPhase := models.PhaseGroup
	groupMatches, err := s.matchRepo.ListByTournament(ctx, id, repositories.ListMatchesFilter{Phase: &groupPhase})
	if err != nil {
		return nil, fmt.Errorf("failed to list group matches: %w", err)
	}

	seeds, err := brackets.KnockoutSeeds(brackets.SplitIntoGroups(teams, s.groupSize), groupMatches)
	if err != nil {
		if errors.Is(err, brackets.ErrGroupStageIncomplete) {
			return nil, ErrRoundIncomplete
		}
		return nil, fmt.Errorf("failed to seed knockout stage: %w", err)
	}

	pairings, err := brackets.GenerateKnockout(seeds)
	if err != nil {
		return nil, fmt.Errorf("failed to generate knockout bracket: %w", err)
	}

	matches := s.pairingsToMatches(tournament, pairings)
	err = s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		for _, match := range matches {
			if err := s.matchRepo.Create(ctx, exec, match); err != nil {
				return fmt.Errorf("failed to persist knockout fixture: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(id)
	s.broadcast(eventBracketUpdated, id, map[string]any{"matches": len(matches)})
	s.logger.InfoContext(ctx, "knockout stage started",
		slog.String("tournament_id", id),
		slog.Int("seeds", len(seeds)),
	)

	out := make([]models.Match, 0, len(matches))
	for _, m := range matches {
		out = append(out, *m)
	}
	return out, nil
}

func (s *tournamentService) UploadLogo(ctx context.Context, actor Actor, id string, contentType string, reader io.Reader) (*models.Tournament, error) {
	tournament, err := s.getTournament(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireOrganizer(actor, tournament); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("tournaments/%s/logo", id)
	result, err := s.uploader.Upload(ctx, key, contentType, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to upload logo: %w", err)
	}
	if err := s.tournamentRepo.UpdateLogoKey(ctx, id, &result.Key); err != nil {
		return nil, fmt.Errorf("failed to store logo key: %w", err)
	}

	tournament.LogoKey = &result.Key
	tournament.LogoURL = populateLogoURL(s.uploader, tournament.LogoKey)
	return tournament, nil
}

func (s *tournamentService) generatorFor(format models.TournamentFormat) brackets.FixtureGenerator {
	switch format {
	case models.FormatElimination:
		return brackets.NewSingleEliminationGenerator()
	case models.FormatMixed:
		return brackets.NewGroupStageGenerator(s.groupSize)
	default:
		return brackets.NewRoundRobinGenerator()
	}
}

func (s *tournamentService) pairingsToMatches(tournament *models.Tournament, pairings []brackets.Pairing) []*models.Match {
	kickoff := defaultKickoff(tournament)
	matches := make([]*models.Match, 0, len(pairings))
	for _, p := range pairings {
		matches = append(matches, &models.Match{
			ID:           uuid.NewString(),
			TournamentID: tournament.ID,
			Phase:        p.Phase,
			Round:        p.Round,
			Slot:         p.Slot,
			GroupLabel:   p.GroupLabel,
			HomeTeamID:   p.HomeTeamID,
			AwayTeamID:   p.AwayTeamID,
			KickoffTime:  kickoff,
			Status:       models.MatchStatusScheduled,
			Version:      1,
		})
	}
	return matches
}

func (s *tournamentService) getTournament(ctx context.Context, id string) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament: %w", err)
	}
	return tournament, nil
}

func (s *tournamentService) broadcast(eventType, tournamentID string, payload any) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToRoom(brackets.Event{
		Type:         eventType,
		TournamentID: tournamentID,
		Payload:      payload,
	})
}

func requireOrganizer(actor Actor, tournament *models.Tournament) error {
	if actor.UserID != tournament.OrganizerID {
		return ErrOrganizerOnly
	}
	return nil
}
