package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Emerc92/futsapp-tournament-hub/brackets"
	"github.com/Emerc92/futsapp-tournament-hub/models"
	"github.com/Emerc92/futsapp-tournament-hub/repositories"
)

// walkoverScore is the conventional score awarded to the winner of a
// forfeited match.
const walkoverScore = 3

type ScheduleMatchInput struct {
	Phase       models.MatchPhase `json:"phase"`
	Round       int               `json:"round"`
	Slot        int               `json:"slot"`
	GroupLabel  *string           `json:"group_label"`
	HomeTeamID  *string           `json:"home_team_id"`
	AwayTeamID  *string           `json:"away_team_id"`
	KickoffTime time.Time         `json:"kickoff_time"`
	Venue       *string           `json:"venue"`
}

type RecordResultInput struct {
	HomeScore int `json:"home_score"`
	AwayScore int `json:"away_score"`
	// Version is the match version the caller read. The write only applies
	// if the match has not changed since; otherwise the caller gets
	// ErrConcurrentModification and must re-read.
	Version int `json:"version"`
}

type MatchService interface {
	Schedule(ctx context.Context, actor Actor, tournamentID string, input ScheduleMatchInput) (*models.Match, error)
	GetByID(ctx context.Context, matchID string) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID string, filter repositories.ListMatchesFilter) ([]models.Match, error)
	// RecordResult writes a final score. Completing a knockout match
	// advances the winner into its next-round slot; completing the final
	// crowns the champion and completes the tournament. Results may be
	// corrected until the tournament completes, as long as the downstream
	// match has not been played.
	RecordResult(ctx context.Context, actor Actor, matchID string, input RecordResultInput) (*models.Match, error)
	// RecordWalkover awards a knockout match to winnerTeamID without play.
	RecordWalkover(ctx context.Context, actor Actor, matchID string, winnerTeamID string) (*models.Match, error)
	Cancel(ctx context.Context, actor Actor, matchID string) error
}

type matchService struct {
	txRunner       TxRunner
	matchRepo      repositories.MatchRepository
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	cache          *ViewCache
	hub            *brackets.Hub
	logger         *slog.Logger
}

func NewMatchService(
	txRunner TxRunner,
	matchRepo repositories.MatchRepository,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	cache *ViewCache,
	hub *brackets.Hub,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		txRunner:       txRunner,
		matchRepo:      matchRepo,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		cache:          cache,
		hub:            hub,
		logger:         logger,
	}
}

func (s *matchService) Schedule(ctx context.Context, actor Actor, tournamentID string, input ScheduleMatchInput) (*models.Match, error) {
	tournament, err := s.getTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if actor.UserID != tournament.OrganizerID {
		return nil, ErrOrganizerOnly
	}
	if tournament.Status != models.StatusClosed && tournament.Status != models.StatusOngoing {
		return nil, ErrTournamentNotOngoing
	}

	phase := input.Phase
	if phase == "" {
		phase = models.PhaseGroup
		if tournament.Format == models.FormatElimination {
			phase = models.PhaseKnockout
		}
	}
	if phase == models.PhaseGroup && !tournament.Format.HasGroupStage() {
		return nil, fmt.Errorf("%w: format %s has no group phase", ErrValidationFailed, tournament.Format)
	}
	if phase == models.PhaseKnockout && !tournament.Format.HasKnockoutStage() {
		return nil, fmt.Errorf("%w: format %s has no knockout phase", ErrValidationFailed, tournament.Format)
	}
	if input.Round < 1 || input.Slot < 1 {
		return nil, fmt.Errorf("%w: round and slot start at 1", ErrValidationFailed)
	}
	if input.HomeTeamID == nil && input.AwayTeamID == nil {
		return nil, ErrInvalidMatchup
	}
	if input.HomeTeamID != nil && input.AwayTeamID != nil && *input.HomeTeamID == *input.AwayTeamID {
		return nil, ErrInvalidMatchup
	}
	for _, teamID := range []*string{input.HomeTeamID, input.AwayTeamID} {
		if teamID == nil {
			continue
		}
		team, err := s.teamRepo.GetByID(ctx, *teamID)
		if err != nil {
			if errors.Is(err, repositories.ErrTeamNotFound) {
				return nil, ErrTeamNotFound
			}
			return nil, fmt.Errorf("failed to load team: %w", err)
		}
		if team.TournamentID != tournamentID {
			return nil, ErrTeamNotFound
		}
	}

	kickoff := input.KickoffTime
	if kickoff.IsZero() {
		kickoff = defaultKickoff(tournament)
	}
	match := &models.Match{
		ID:           uuid.NewString(),
		TournamentID: tournamentID,
		Phase:        phase,
		Round:        input.Round,
		Slot:         input.Slot,
		GroupLabel:   input.GroupLabel,
		HomeTeamID:   input.HomeTeamID,
		AwayTeamID:   input.AwayTeamID,
		KickoffTime:  kickoff,
		Venue:        input.Venue,
		Status:       models.MatchStatusScheduled,
		Version:      1,
	}
	if err := s.matchRepo.Create(ctx, nil, match); err != nil {
		if errors.Is(err, repositories.ErrMatchInvalidTeam) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	s.cache.Invalidate(tournamentID)
	return match, nil
}

func (s *matchService) GetByID(ctx context.Context, matchID string) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to load match: %w", err)
	}
	return match, nil
}

func (s *matchService) ListByTournament(ctx context.Context, tournamentID string, filter repositories.ListMatchesFilter) ([]models.Match, error) {
	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return matches, nil
}

func (s *matchService) RecordResult(ctx context.Context, actor Actor, matchID string, input RecordResultInput) (*models.Match, error) {
	if input.HomeScore < 0 || input.AwayScore < 0 {
		return nil, ErrInvalidScore
	}

	match, err := s.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	tournament, err := s.getTournament(ctx, match.TournamentID)
	if err != nil {
		return nil, err
	}
	if actor.UserID != tournament.OrganizerID {
		return nil, ErrOrganizerOnly
	}

	var winnerID *string
	if match.Phase == models.PhaseKnockout && input.HomeScore == input.AwayScore {
		return nil, ErrDrawNotAllowed
	}
	switch {
	case input.HomeScore > input.AwayScore:
		winnerID = match.HomeTeamID
	case input.AwayScore > input.HomeScore:
		winnerID = match.AwayTeamID
	}

	return s.applyResult(ctx, tournament, match, input.HomeScore, input.AwayScore, winnerID, input.Version)
}

func (s *matchService) RecordWalkover(ctx context.Context, actor Actor, matchID string, winnerTeamID string) (*models.Match, error) {
	match, err := s.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	tournament, err := s.getTournament(ctx, match.TournamentID)
	if err != nil {
		return nil, err
	}
	if actor.UserID != tournament.OrganizerID {
		return nil, ErrOrganizerOnly
	}
	if match.Phase != models.PhaseKnockout {
		return nil, ErrDisqualifyKnockoutOnly
	}
	if match.Status == models.MatchStatusCompleted {
		return nil, ErrAlreadyCompleted
	}
	if !match.HasTeam(winnerTeamID) {
		return nil, ErrTeamNotFound
	}

	homeScore, awayScore := 0, walkoverScore
	if match.HomeTeamID != nil && *match.HomeTeamID == winnerTeamID {
		homeScore, awayScore = walkoverScore, 0
	}
	winner := winnerTeamID
	return s.applyResult(ctx, tournament, match, homeScore, awayScore, &winner, match.Version)
}

// applyResult is the single write path for results: lifecycle and ledger
// checks, the compare-and-set update, knockout advancement and champion
// crowning in one transaction, then cache invalidation and room broadcasts.
func (s *matchService) applyResult(ctx context.Context, tournament *models.Tournament, match *models.Match, homeScore, awayScore int, winnerID *string, expectedVersion int) (*models.Match, error) {
	switch tournament.Status {
	case models.StatusCompleted:
		return nil, ErrAlreadyCompleted
	case models.StatusOngoing:
	default:
		return nil, ErrTournamentNotOngoing
	}
	if match.Status == models.MatchStatusCancelled {
		return nil, ErrMatchCancelled
	}
	if match.HomeTeamID == nil || match.AwayTeamID == nil {
		// A placeholder slot still waiting on a feeder match.
		return nil, ErrRoundIncomplete
	}

	isFinal := false
	var nextMatch *models.Match
	nextHome := false
	if match.Phase == models.PhaseKnockout {
		finalRound, err := s.finalRound(ctx, match.TournamentID)
		if err != nil {
			return nil, err
		}
		isFinal = match.Round == finalRound
		if !isFinal {
			nextRound, nextSlot, home := brackets.NextSlot(match.Round, match.Slot)
			next, err := s.matchRepo.FindBySlot(ctx, nil, match.TournamentID, nextRound, nextSlot)
			if err != nil && !errors.Is(err, repositories.ErrMatchNotFound) {
				return nil, fmt.Errorf("failed to find next match: %w", err)
			}
			if next != nil {
				// Correcting a result after the downstream match was played
				// would invalidate it.
				if match.Status == models.MatchStatusCompleted && next.Completed() {
					return nil, ErrAlreadyCompleted
				}
				nextMatch = next
				nextHome = home
			}
		}
	}

	err := s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.matchRepo.UpdateResult(ctx, exec, match.ID, expectedVersion, homeScore, awayScore, winnerID); err != nil {
			switch {
			case errors.Is(err, repositories.ErrMatchVersionConflict):
				return ErrConcurrentModification
			case errors.Is(err, repositories.ErrMatchNotFound):
				return ErrMatchNotFound
			}
			return fmt.Errorf("failed to update result: %w", err)
		}
		if nextMatch != nil && winnerID != nil {
			if err := s.matchRepo.SetSlotTeam(ctx, exec, nextMatch.ID, nextHome, *winnerID); err != nil {
				return fmt.Errorf("failed to advance winner: %w", err)
			}
		}
		if isFinal && winnerID != nil {
			if err := s.tournamentRepo.SetChampion(ctx, exec, match.TournamentID, winnerID); err != nil {
				return fmt.Errorf("failed to set champion: %w", err)
			}
			if err := s.tournamentRepo.UpdateStatus(ctx, exec, match.TournamentID, models.StatusCompleted); err != nil {
				return fmt.Errorf("failed to complete tournament: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	match.HomeScore = &homeScore
	match.AwayScore = &awayScore
	match.WinnerTeamID = winnerID
	match.Status = models.MatchStatusCompleted
	match.Version = expectedVersion + 1

	s.cache.Invalidate(match.TournamentID)
	s.broadcast(eventMatchResultRecorded, match.TournamentID, match)
	if match.Phase == models.PhaseGroup {
		s.broadcast(eventStandingsUpdated, match.TournamentID, nil)
	} else {
		s.broadcast(eventBracketUpdated, match.TournamentID, nil)
	}
	if isFinal {
		s.broadcast(eventTournamentCompleted, match.TournamentID, map[string]any{"champion_team_id": winnerID})
	}

	s.logger.InfoContext(ctx, "match result recorded",
		slog.String("tournament_id", match.TournamentID),
		slog.String("match_id", match.ID),
		slog.Int("home_score", homeScore),
		slog.Int("away_score", awayScore),
		slog.Bool("final", isFinal),
	)
	return match, nil
}

func (s *matchService) Cancel(ctx context.Context, actor Actor, matchID string) error {
	match, err := s.GetByID(ctx, matchID)
	if err != nil {
		return err
	}
	tournament, err := s.getTournament(ctx, match.TournamentID)
	if err != nil {
		return err
	}
	if actor.UserID != tournament.OrganizerID {
		return ErrOrganizerOnly
	}
	if match.Status == models.MatchStatusCompleted {
		return ErrAlreadyCompleted
	}
	if match.Status == models.MatchStatusCancelled {
		return ErrMatchCancelled
	}

	if err := s.matchRepo.Cancel(ctx, nil, matchID); err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return fmt.Errorf("failed to cancel match: %w", err)
	}
	s.cache.Invalidate(match.TournamentID)
	return nil
}

// finalRound is the highest knockout round persisted for the tournament.
// The full bracket skeleton is created up-front, so this is stable from the
// moment the knockout stage exists.
func (s *matchService) finalRound(ctx context.Context, tournamentID string) (int, error) {
	phase := models.PhaseKnockout
	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID, repositories.ListMatchesFilter{Phase: &phase})
	if err != nil {
		return 0, fmt.Errorf("failed to list knockout matches: %w", err)
	}
	final := 0
	for i := range matches {
		if matches[i].Round > final {
			final = matches[i].Round
		}
	}
	return final, nil
}

func (s *matchService) getTournament(ctx context.Context, id string) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament: %w", err)
	}
	return tournament, nil
}

func (s *matchService) broadcast(eventType, tournamentID string, payload any) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToRoom(brackets.Event{
		Type:         eventType,
		TournamentID: tournamentID,
		Payload:      payload,
	})
}
