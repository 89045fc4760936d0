package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Emerc92/futsapp-tournament-hub/models"
)

func strPtr(s string) *string { return &s }

type matchFixture struct {
	tournamentRepo *fakeTournamentRepo
	teamRepo       *fakeTeamRepo
	matchRepo      *fakeMatchRepo
	cache          *ViewCache
	svc            MatchService
	tournament     *models.Tournament
	organizer      Actor
}

func newMatchFixture(t *testing.T, format models.TournamentFormat) *matchFixture {
	t.Helper()
	f := &matchFixture{
		tournamentRepo: newFakeTournamentRepo(),
		teamRepo:       newFakeTeamRepo(),
		matchRepo:      newFakeMatchRepo(),
		cache:          NewViewCache(),
		organizer:      Actor{UserID: "org-1", Role: models.RoleOrganizer},
	}
	f.svc = NewMatchService(&fakeTxRunner{}, f.matchRepo, f.tournamentRepo, f.teamRepo, f.cache, nil, testLogger())

	f.tournament = &models.Tournament{
		ID:          "tour-1",
		Name:        "City Cup",
		Format:      format,
		SportKind:   models.Sport5v5,
		Capacity:    8,
		StartDate:   time.Now().Add(time.Hour),
		RegDeadline: time.Now().Add(30 * time.Minute),
		Status:      models.StatusOngoing,
		OrganizerID: "org-1",
	}
	if err := f.tournamentRepo.Create(context.Background(), f.tournament); err != nil {
		t.Fatalf("create tournament: %v", err)
	}
	for _, id := range []string{"t1", "t2", "t3", "t4"} {
		team := &models.Team{ID: id, TournamentID: "tour-1", Name: "Team " + id, CaptainID: "cap-" + id}
		if err := f.teamRepo.Create(context.Background(), nil, team); err != nil {
			t.Fatalf("create team %s: %v", id, err)
		}
	}
	return f
}

// addKnockoutSkeleton persists a four-team bracket: two semifinals and an
// empty final.
func (f *matchFixture) addKnockoutSkeleton(t *testing.T) {
	t.Helper()
	matches := []*models.Match{
		{ID: "m1", TournamentID: "tour-1", Phase: models.PhaseKnockout, Round: 1, Slot: 1,
			HomeTeamID: strPtr("t1"), AwayTeamID: strPtr("t2"), Status: models.MatchStatusScheduled, Version: 1},
		{ID: "m2", TournamentID: "tour-1", Phase: models.PhaseKnockout, Round: 1, Slot: 2,
			HomeTeamID: strPtr("t3"), AwayTeamID: strPtr("t4"), Status: models.MatchStatusScheduled, Version: 1},
		{ID: "final", TournamentID: "tour-1", Phase: models.PhaseKnockout, Round: 2, Slot: 1,
			Status: models.MatchStatusScheduled, Version: 1},
	}
	for _, m := range matches {
		if err := f.matchRepo.Create(context.Background(), nil, m); err != nil {
			t.Fatalf("create match %s: %v", m.ID, err)
		}
	}
}

func TestRecordResultAdvancesWinner(t *testing.T) {
	f := newMatchFixture(t, models.FormatElimination)
	f.addKnockoutSkeleton(t)

	updated, err := f.svc.RecordResult(context.Background(), f.organizer, "m1", RecordResultInput{
		HomeScore: 3, AwayScore: 1, Version: 1,
	})
	if err != nil {
		t.Fatalf("RecordResult: %v", err)
	}
	if updated.Status != models.MatchStatusCompleted {
		t.Errorf("status = %s, want completed", updated.Status)
	}
	if updated.WinnerTeamID == nil || *updated.WinnerTeamID != "t1" {
		t.Errorf("winner = %v, want t1", updated.WinnerTeamID)
	}
	if updated.Version != 2 {
		t.Errorf("version = %d, want 2", updated.Version)
	}

	final, err := f.matchRepo.GetByID(context.Background(), "final")
	if err != nil {
		t.Fatalf("get final: %v", err)
	}
	if final.HomeTeamID == nil || *final.HomeTeamID != "t1" {
		t.Errorf("final home side = %v, want t1", final.HomeTeamID)
	}
	if final.AwayTeamID != nil {
		t.Errorf("final away side = %v, want empty", final.AwayTeamID)
	}
}

func TestRecordResultVersionConflict(t *testing.T) {
	f := newMatchFixture(t, models.FormatElimination)
	f.addKnockoutSkeleton(t)

	if _, err := f.svc.RecordResult(context.Background(), f.organizer, "m1", RecordResultInput{
		HomeScore: 2, AwayScore: 0, Version: 1,
	}); err != nil {
		t.Fatalf("first write: %v", err)
	}

	// A second writer still holding version 1 must lose the race.
	_, err := f.svc.RecordResult(context.Background(), f.organizer, "m1", RecordResultInput{
		HomeScore: 0, AwayScore: 2, Version: 1,
	})
	if !errors.Is(err, ErrConcurrentModification) {
		t.Fatalf("err = %v, want ErrConcurrentModification", err)
	}

	m, _ := f.matchRepo.GetByID(context.Background(), "m1")
	if *m.HomeScore != 2 || *m.AwayScore != 0 {
		t.Errorf("stale write overwrote result: %d-%d", *m.HomeScore, *m.AwayScore)
	}
}

func TestRecordResultValidation(t *testing.T) {
	f := newMatchFixture(t, models.FormatElimination)
	f.addKnockoutSkeleton(t)

	tests := []struct {
		name    string
		actor   Actor
		matchID string
		input   RecordResultInput
		wantErr error
	}{
		{"negative score", f.organizer, "m1", RecordResultInput{HomeScore: -1, AwayScore: 0, Version: 1}, ErrInvalidScore},
		{"knockout draw", f.organizer, "m1", RecordResultInput{HomeScore: 1, AwayScore: 1, Version: 1}, ErrDrawNotAllowed},
		{"placeholder sides", f.organizer, "final", RecordResultInput{HomeScore: 1, AwayScore: 0, Version: 1}, ErrRoundIncomplete},
		{"unknown match", f.organizer, "nope", RecordResultInput{HomeScore: 1, AwayScore: 0, Version: 1}, ErrMatchNotFound},
		{"not the organizer", Actor{UserID: "someone", Role: models.RoleOrganizer}, "m1", RecordResultInput{HomeScore: 1, AwayScore: 0, Version: 1}, ErrOrganizerOnly},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RecordResult(context.Background(), tt.actor, tt.matchID, tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecordFinalCrownsChampion(t *testing.T) {
	f := newMatchFixture(t, models.FormatElimination)
	f.addKnockoutSkeleton(t)
	ctx := context.Background()

	if _, err := f.svc.RecordResult(ctx, f.organizer, "m1", RecordResultInput{HomeScore: 2, AwayScore: 1, Version: 1}); err != nil {
		t.Fatalf("semifinal 1: %v", err)
	}
	if _, err := f.svc.RecordResult(ctx, f.organizer, "m2", RecordResultInput{HomeScore: 0, AwayScore: 4, Version: 1}); err != nil {
		t.Fatalf("semifinal 2: %v", err)
	}

	// Both semifinal winners filled the final; its version moved twice.
	final, _ := f.matchRepo.GetByID(ctx, "final")
	if _, err := f.svc.RecordResult(ctx, f.organizer, "final", RecordResultInput{HomeScore: 1, AwayScore: 0, Version: final.Version}); err != nil {
		t.Fatalf("final: %v", err)
	}

	tour, err := f.tournamentRepo.GetByID(ctx, "tour-1")
	if err != nil {
		t.Fatalf("get tournament: %v", err)
	}
	if tour.Status != models.StatusCompleted {
		t.Errorf("tournament status = %s, want completed", tour.Status)
	}
	if tour.ChampionTeamID == nil || *tour.ChampionTeamID != "t1" {
		t.Errorf("champion = %v, want t1", tour.ChampionTeamID)
	}

	// No further edits once the tournament is decided.
	_, err = f.svc.RecordResult(ctx, f.organizer, "m1", RecordResultInput{HomeScore: 5, AwayScore: 0, Version: 2})
	if !errors.Is(err, ErrAlreadyCompleted) {
		t.Errorf("post-completion edit err = %v, want ErrAlreadyCompleted", err)
	}
}

func TestRecordResultGroupDrawAllowed(t *testing.T) {
	f := newMatchFixture(t, models.FormatRoundRobin)
	m := &models.Match{
		ID: "g1", TournamentID: "tour-1", Phase: models.PhaseGroup, Round: 1, Slot: 1,
		HomeTeamID: strPtr("t1"), AwayTeamID: strPtr("t2"), Status: models.MatchStatusScheduled, Version: 1,
	}
	if err := f.matchRepo.Create(context.Background(), nil, m); err != nil {
		t.Fatalf("create match: %v", err)
	}

	updated, err := f.svc.RecordResult(context.Background(), f.organizer, "g1", RecordResultInput{
		HomeScore: 2, AwayScore: 2, Version: 1,
	})
	if err != nil {
		t.Fatalf("RecordResult: %v", err)
	}
	if updated.WinnerTeamID != nil {
		t.Errorf("draw produced a winner: %v", *updated.WinnerTeamID)
	}
}

func TestRecordResultCorrection(t *testing.T) {
	f := newMatchFixture(t, models.FormatElimination)
	f.addKnockoutSkeleton(t)
	ctx := context.Background()

	if _, err := f.svc.RecordResult(ctx, f.organizer, "m1", RecordResultInput{HomeScore: 2, AwayScore: 1, Version: 1}); err != nil {
		t.Fatalf("first result: %v", err)
	}

	// Overturn the result before the final is played: t2 now advances.
	if _, err := f.svc.RecordResult(ctx, f.organizer, "m1", RecordResultInput{HomeScore: 1, AwayScore: 3, Version: 2}); err != nil {
		t.Fatalf("correction: %v", err)
	}
	final, _ := f.matchRepo.GetByID(ctx, "final")
	if final.HomeTeamID == nil || *final.HomeTeamID != "t2" {
		t.Errorf("final home side = %v, want t2 after correction", final.HomeTeamID)
	}
}

func TestRecordWalkover(t *testing.T) {
	f := newMatchFixture(t, models.FormatElimination)
	f.addKnockoutSkeleton(t)

	updated, err := f.svc.RecordWalkover(context.Background(), f.organizer, "m1", "t2")
	if err != nil {
		t.Fatalf("RecordWalkover: %v", err)
	}
	if *updated.HomeScore != 0 || *updated.AwayScore != walkoverScore {
		t.Errorf("score = %d-%d, want 0-%d", *updated.HomeScore, *updated.AwayScore, walkoverScore)
	}

	final, _ := f.matchRepo.GetByID(context.Background(), "final")
	if final.HomeTeamID == nil || *final.HomeTeamID != "t2" {
		t.Errorf("final home side = %v, want t2", final.HomeTeamID)
	}
}

func TestCancelMatch(t *testing.T) {
	f := newMatchFixture(t, models.FormatElimination)
	f.addKnockoutSkeleton(t)
	ctx := context.Background()

	if err := f.svc.Cancel(ctx, f.organizer, "m1"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := f.svc.Cancel(ctx, f.organizer, "m1"); !errors.Is(err, ErrMatchCancelled) {
		t.Errorf("second cancel err = %v, want ErrMatchCancelled", err)
	}

	// A cancelled match takes no results.
	_, err := f.svc.RecordResult(ctx, f.organizer, "m1", RecordResultInput{HomeScore: 1, AwayScore: 0, Version: 2})
	if !errors.Is(err, ErrMatchCancelled) {
		t.Errorf("result on cancelled match err = %v, want ErrMatchCancelled", err)
	}
}

func TestScheduleValidation(t *testing.T) {
	f := newMatchFixture(t, models.FormatElimination)

	tests := []struct {
		name    string
		input   ScheduleMatchInput
		wantErr error
	}{
		{"both sides empty", ScheduleMatchInput{Round: 1, Slot: 1}, ErrInvalidMatchup},
		{"same team twice", ScheduleMatchInput{Round: 1, Slot: 1, HomeTeamID: strPtr("t1"), AwayTeamID: strPtr("t1")}, ErrInvalidMatchup},
		{"zero round", ScheduleMatchInput{Round: 0, Slot: 1, HomeTeamID: strPtr("t1"), AwayTeamID: strPtr("t2")}, ErrValidationFailed},
		{"unknown team", ScheduleMatchInput{Round: 1, Slot: 1, HomeTeamID: strPtr("??"), AwayTeamID: strPtr("t2")}, ErrTeamNotFound},
		{"group phase on elimination", ScheduleMatchInput{Phase: models.PhaseGroup, Round: 1, Slot: 1, HomeTeamID: strPtr("t1"), AwayTeamID: strPtr("t2")}, ErrValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Schedule(context.Background(), f.organizer, "tour-1", tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	match, err := f.svc.Schedule(context.Background(), f.organizer, "tour-1", ScheduleMatchInput{
		Round: 1, Slot: 1, HomeTeamID: strPtr("t1"), AwayTeamID: strPtr("t2"),
	})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if match.Phase != models.PhaseKnockout {
		t.Errorf("phase = %s, want knockout for elimination format", match.Phase)
	}
	if match.Version != 1 {
		t.Errorf("version = %d, want 1", match.Version)
	}
}
