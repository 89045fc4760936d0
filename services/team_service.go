package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Emerc92/futsapp-tournament-hub/models"
	"github.com/Emerc92/futsapp-tournament-hub/repositories"
	"github.com/Emerc92/futsapp-tournament-hub/storage"
)

type TeamMemberInput struct {
	UserID       string  `json:"user_id"`
	JerseyNumber *int    `json:"jersey_number"`
	Position     *string `json:"position"`
}

type RegisterTeamInput struct {
	Name string `json:"name"`
	// Members besides the captain. The captain is always added from the
	// acting user.
	Members []TeamMemberInput `json:"members"`
}

type TeamService interface {
	// Register creates a team for the acting captain in an open tournament.
	// The transaction locks the tournament row before counting teams, so
	// two concurrent registrations cannot both take the last spot.
	Register(ctx context.Context, actor Actor, tournamentID string, input RegisterTeamInput) (*models.Team, error)
	GetByID(ctx context.Context, teamID string) (*models.Team, error)
	ListByTournament(ctx context.Context, tournamentID string) ([]models.Team, error)
	Withdraw(ctx context.Context, actor Actor, teamID string) error
	// AddMember and RemoveMember edit the roster while the tournament has
	// not started. The captain's own entry cannot be removed.
	AddMember(ctx context.Context, actor Actor, teamID string, input TeamMemberInput) (*models.TeamMember, error)
	RemoveMember(ctx context.Context, actor Actor, teamID, memberID string) error
	MarkPaid(ctx context.Context, actor Actor, teamID string) error
	// Disqualify removes an ongoing knockout tournament's team from
	// contention by awarding its next unplayed match to the opponent.
	Disqualify(ctx context.Context, actor Actor, teamID string) error
	UploadLogo(ctx context.Context, actor Actor, teamID string, contentType string, reader io.Reader) (*models.Team, error)
}

type teamService struct {
	txRunner       TxRunner
	teamRepo       repositories.TeamRepository
	rosterRepo     repositories.RosterRepository
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	matchService   MatchService
	uploader       storage.FileUploader
	logger         *slog.Logger
}

func NewTeamService(
	txRunner TxRunner,
	teamRepo repositories.TeamRepository,
	rosterRepo repositories.RosterRepository,
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	matchService MatchService,
	uploader storage.FileUploader,
	logger *slog.Logger,
) TeamService {
	return &teamService{
		txRunner:       txRunner,
		teamRepo:       teamRepo,
		rosterRepo:     rosterRepo,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		matchService:   matchService,
		uploader:       uploader,
		logger:         logger,
	}
}

func (s *teamService) Register(ctx context.Context, actor Actor, tournamentID string, input RegisterTeamInput) (*models.Team, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrTeamNameRequired
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament: %w", err)
	}
	if tournament.Status != models.StatusOpen || time.Now().After(tournament.RegDeadline) {
		return nil, ErrRegistrationClosed
	}

	// Roster = captain + listed members, capped by the sport's squad limit.
	if len(input.Members)+1 > tournament.SportKind.SquadLimit() {
		return nil, ErrRosterTooLarge
	}
	seen := map[string]bool{actor.UserID: true}
	for _, m := range input.Members {
		if m.UserID == "" || seen[m.UserID] {
			return nil, fmt.Errorf("%w: duplicate or empty roster member", ErrValidationFailed)
		}
		seen[m.UserID] = true
	}

	if existing, err := s.teamRepo.FindByCaptain(ctx, tournamentID, actor.UserID); err != nil {
		if !errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, fmt.Errorf("failed to check captain: %w", err)
		}
	} else if existing != nil {
		return nil, ErrDuplicateCaptain
	}

	team := &models.Team{
		ID:           uuid.NewString(),
		TournamentID: tournamentID,
		Name:         strings.TrimSpace(input.Name),
		CaptainID:    actor.UserID,
	}

	members := make([]*models.TeamMember, 0, len(input.Members)+1)
	members = append(members, &models.TeamMember{
		ID:        uuid.NewString(),
		TeamID:    team.ID,
		UserID:    actor.UserID,
		IsCaptain: true,
	})
	for _, m := range input.Members {
		members = append(members, &models.TeamMember{
			ID:           uuid.NewString(),
			TeamID:       team.ID,
			UserID:       m.UserID,
			JerseyNumber: m.JerseyNumber,
			Position:     m.Position,
		})
	}

	err = s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		// Concurrent registrations serialise on the tournament row lock
		// before the capacity count.
		locked, err := s.tournamentRepo.GetForUpdate(ctx, exec, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return fmt.Errorf("failed to lock tournament: %w", err)
		}
		if locked.Status != models.StatusOpen {
			return ErrRegistrationClosed
		}
		count, err := s.teamRepo.CountByTournament(ctx, exec, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to count teams: %w", err)
		}
		if count >= locked.Capacity {
			return ErrCapacityExceeded
		}
		if err := s.teamRepo.Create(ctx, exec, team); err != nil {
			switch {
			case errors.Is(err, repositories.ErrTeamNameConflict):
				return ErrRegistrationConflict
			case errors.Is(err, repositories.ErrTeamCaptainConflict):
				return ErrDuplicateCaptain
			}
			return fmt.Errorf("failed to create team: %w", err)
		}
		if err := s.rosterRepo.CreateBatch(ctx, exec, members); err != nil {
			return fmt.Errorf("failed to create roster: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	team.Members = make([]models.TeamMember, 0, len(members))
	for _, m := range members {
		team.Members = append(team.Members, *m)
	}

	s.logger.InfoContext(ctx, "team registered",
		slog.String("tournament_id", tournamentID),
		slog.String("team_id", team.ID),
		slog.String("captain_id", actor.UserID),
		slog.Int("roster_size", len(members)),
	)
	return team, nil
}

func (s *teamService) GetByID(ctx context.Context, teamID string) (*models.Team, error) {
	team, err := s.getTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	members, err := s.rosterRepo.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roster: %w", err)
	}
	team.Members = members
	team.LogoURL = populateLogoURL(s.uploader, team.LogoKey)
	return team, nil
}

func (s *teamService) ListByTournament(ctx context.Context, tournamentID string) ([]models.Team, error) {
	teams, err := s.teamRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	for i := range teams {
		teams[i].LogoURL = populateLogoURL(s.uploader, teams[i].LogoKey)
	}
	return teams, nil
}

func (s *teamService) Withdraw(ctx context.Context, actor Actor, teamID string) error {
	team, err := s.getTeam(ctx, teamID)
	if err != nil {
		return err
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, team.TournamentID)
	if err != nil {
		return fmt.Errorf("failed to load tournament: %w", err)
	}
	if actor.UserID != team.CaptainID && actor.UserID != tournament.OrganizerID {
		return ErrForbiddenOperation
	}
	// Once fixtures exist, leaving would corrupt the schedule; use
	// Disqualify instead.
	if tournament.Status == models.StatusOngoing || tournament.Status == models.StatusCompleted {
		return ErrTournamentLocked
	}

	err = s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.rosterRepo.DeleteByTeam(ctx, exec, teamID); err != nil {
			return fmt.Errorf("failed to delete roster: %w", err)
		}
		if err := s.teamRepo.Delete(ctx, exec, teamID); err != nil {
			return fmt.Errorf("failed to delete team: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.uploader != nil && team.LogoKey != nil {
		if err := s.uploader.Delete(ctx, *team.LogoKey); err != nil {
			s.logger.WarnContext(ctx, "failed to delete team logo",
				slog.String("team_id", teamID),
				slog.Any("error", err),
			)
		}
	}

	s.logger.InfoContext(ctx, "team withdrew",
		slog.String("tournament_id", team.TournamentID),
		slog.String("team_id", teamID),
	)
	return nil
}

func (s *teamService) AddMember(ctx context.Context, actor Actor, teamID string, input TeamMemberInput) (*models.TeamMember, error) {
	if input.UserID == "" {
		return nil, fmt.Errorf("%w: member user_id is required", ErrValidationFailed)
	}
	team, err := s.getTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, team.TournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tournament: %w", err)
	}
	if actor.UserID != team.CaptainID {
		return nil, ErrCaptainOnly
	}
	if tournament.Status == models.StatusOngoing || tournament.Status == models.StatusCompleted {
		return nil, ErrTournamentLocked
	}

	members, err := s.rosterRepo.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roster: %w", err)
	}
	if len(members)+1 > tournament.SportKind.SquadLimit() {
		return nil, ErrRosterTooLarge
	}

	member := &models.TeamMember{
		ID:           uuid.NewString(),
		TeamID:       teamID,
		UserID:       input.UserID,
		JerseyNumber: input.JerseyNumber,
		Position:     input.Position,
	}
	if err := s.rosterRepo.Create(ctx, nil, member); err != nil {
		if errors.Is(err, repositories.ErrRosterUserConflict) {
			return nil, fmt.Errorf("%w: user is already on the roster", ErrValidationFailed)
		}
		return nil, fmt.Errorf("failed to add member: %w", err)
	}
	return member, nil
}

func (s *teamService) RemoveMember(ctx context.Context, actor Actor, teamID, memberID string) error {
	team, err := s.getTeam(ctx, teamID)
	if err != nil {
		return err
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, team.TournamentID)
	if err != nil {
		return fmt.Errorf("failed to load tournament: %w", err)
	}
	if actor.UserID != team.CaptainID {
		return ErrCaptainOnly
	}
	if tournament.Status == models.StatusOngoing || tournament.Status == models.StatusCompleted {
		return ErrTournamentLocked
	}

	members, err := s.rosterRepo.ListByTeam(ctx, teamID)
	if err != nil {
		return fmt.Errorf("failed to list roster: %w", err)
	}
	for _, m := range members {
		if m.ID != memberID {
			continue
		}
		if m.IsCaptain {
			return ErrForbiddenOperation
		}
		if err := s.rosterRepo.Delete(ctx, nil, memberID); err != nil {
			if errors.Is(err, repositories.ErrRosterEntryNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to remove member: %w", err)
		}
		return nil
	}
	return ErrNotFound
}

func (s *teamService) MarkPaid(ctx context.Context, actor Actor, teamID string) error {
	team, err := s.getTeam(ctx, teamID)
	if err != nil {
		return err
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, team.TournamentID)
	if err != nil {
		return fmt.Errorf("failed to load tournament: %w", err)
	}
	if actor.UserID != tournament.OrganizerID {
		return ErrOrganizerOnly
	}
	if team.Paid {
		return nil
	}
	return s.teamRepo.SetPaid(ctx, teamID, true)
}

func (s *teamService) Disqualify(ctx context.Context, actor Actor, teamID string) error {
	team, err := s.getTeam(ctx, teamID)
	if err != nil {
		return err
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, team.TournamentID)
	if err != nil {
		return fmt.Errorf("failed to load tournament: %w", err)
	}
	if actor.UserID != tournament.OrganizerID {
		return ErrOrganizerOnly
	}
	if tournament.Status != models.StatusOngoing {
		return ErrTournamentNotOngoing
	}
	if !tournament.Format.HasKnockoutStage() {
		return ErrDisqualifyKnockoutOnly
	}

	phase := models.PhaseKnockout
	status := models.MatchStatusScheduled
	matches, err := s.matchRepo.ListByTournament(ctx, team.TournamentID, repositories.ListMatchesFilter{
		Phase:  &phase,
		Status: &status,
	})
	if err != nil {
		return fmt.Errorf("failed to list matches: %w", err)
	}

	// The team's next match is its scheduled one in the lowest round. The
	// opponent must already be known for a walkover to be awarded.
	var next *models.Match
	for i := range matches {
		m := &matches[i]
		if !m.HasTeam(teamID) {
			continue
		}
		if next == nil || m.Round < next.Round {
			next = m
		}
	}
	if next == nil {
		return ErrMatchNotFound
	}

	var winnerID string
	switch {
	case next.HomeTeamID != nil && *next.HomeTeamID == teamID && next.AwayTeamID != nil:
		winnerID = *next.AwayTeamID
	case next.AwayTeamID != nil && *next.AwayTeamID == teamID && next.HomeTeamID != nil:
		winnerID = *next.HomeTeamID
	default:
		return ErrRoundIncomplete
	}

	if _, err := s.matchService.RecordWalkover(ctx, actor, next.ID, winnerID); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "team disqualified",
		slog.String("tournament_id", team.TournamentID),
		slog.String("team_id", teamID),
		slog.String("walkover_match_id", next.ID),
	)
	return nil
}

func (s *teamService) UploadLogo(ctx context.Context, actor Actor, teamID string, contentType string, reader io.Reader) (*models.Team, error) {
	team, err := s.getTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if actor.UserID != team.CaptainID {
		return nil, ErrCaptainOnly
	}

	key := fmt.Sprintf("teams/%s/logo", teamID)
	result, err := s.uploader.Upload(ctx, key, contentType, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to upload logo: %w", err)
	}
	if err := s.teamRepo.UpdateLogoKey(ctx, teamID, &result.Key); err != nil {
		return nil, fmt.Errorf("failed to store logo key: %w", err)
	}

	team.LogoKey = &result.Key
	team.LogoURL = populateLogoURL(s.uploader, team.LogoKey)
	return team, nil
}

func (s *teamService) getTeam(ctx context.Context, teamID string) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to load team: %w", err)
	}
	return team, nil
}
