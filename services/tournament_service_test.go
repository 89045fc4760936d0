package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Emerc92/futsapp-tournament-hub/models"
	"github.com/Emerc92/futsapp-tournament-hub/repositories"
)

type tournamentFixture struct {
	tournamentRepo *fakeTournamentRepo
	teamRepo       *fakeTeamRepo
	matchRepo      *fakeMatchRepo
	userRepo       *fakeUserRepo
	cache          *ViewCache
	svc            TournamentService
	organizer      Actor
}

func newTournamentFixture(t *testing.T) *tournamentFixture {
	t.Helper()
	f := &tournamentFixture{
		tournamentRepo: newFakeTournamentRepo(),
		teamRepo:       newFakeTeamRepo(),
		matchRepo:      newFakeMatchRepo(),
		userRepo:       newFakeUserRepo(),
		cache:          NewViewCache(),
		organizer:      Actor{UserID: "org-1", Role: models.RoleOrganizer},
	}
	f.svc = NewTournamentService(&fakeTxRunner{}, f.tournamentRepo, f.teamRepo, f.matchRepo, f.userRepo, nil, f.cache, nil, testLogger())
	return f
}

func validCreateInput(format models.TournamentFormat) CreateTournamentInput {
	return CreateTournamentInput{
		Name:        "Summer Cup",
		City:        "Lisbon",
		Format:      format,
		SportKind:   models.Sport5v5,
		Capacity:    8,
		EntryFee:    50,
		StartDate:   time.Now().Add(48 * time.Hour),
		RegDeadline: time.Now().Add(24 * time.Hour),
	}
}

func (f *tournamentFixture) seedTeams(t *testing.T, tournamentID string, count int) []models.Team {
	t.Helper()
	for i := 1; i <= count; i++ {
		team := &models.Team{
			ID:           fmt.Sprintf("team-%d", i),
			TournamentID: tournamentID,
			Name:         fmt.Sprintf("Team %d", i),
			CaptainID:    fmt.Sprintf("cap-%d", i),
			CreatedAt:    time.Now().Add(time.Duration(i) * time.Second),
		}
		if err := f.teamRepo.Create(context.Background(), nil, team); err != nil {
			t.Fatalf("seed team %d: %v", i, err)
		}
	}
	teams, err := f.teamRepo.ListByTournament(context.Background(), tournamentID)
	if err != nil {
		t.Fatalf("list teams: %v", err)
	}
	return teams
}

func TestCreateTournamentValidation(t *testing.T) {
	f := newTournamentFixture(t)

	mutate := func(fn func(*CreateTournamentInput)) CreateTournamentInput {
		input := validCreateInput(models.FormatRoundRobin)
		fn(&input)
		return input
	}
	negative := -1.0

	tests := []struct {
		name    string
		actor   Actor
		input   CreateTournamentInput
		wantErr error
	}{
		{"player cannot create", Actor{UserID: "u1", Role: models.RolePlayer}, validCreateInput(models.FormatRoundRobin), ErrOrganizerOnly},
		{"empty name", f.organizer, mutate(func(i *CreateTournamentInput) { i.Name = "  " }), ErrTournamentNameRequired},
		{"bad format", f.organizer, mutate(func(i *CreateTournamentInput) { i.Format = "ladder" }), ErrTournamentInvalidFormat},
		{"bad sport", f.organizer, mutate(func(i *CreateTournamentInput) { i.SportKind = "3v3" }), ErrTournamentInvalidSport},
		{"capacity below two", f.organizer, mutate(func(i *CreateTournamentInput) { i.Capacity = 1 }), ErrTournamentInvalidCap},
		{"negative entry fee", f.organizer, mutate(func(i *CreateTournamentInput) { i.EntryFee = -5 }), ErrTournamentInvalidFee},
		{"negative match price", f.organizer, mutate(func(i *CreateTournamentInput) { i.MatchPrice = &negative }), ErrTournamentInvalidFee},
		{"deadline after start", f.organizer, mutate(func(i *CreateTournamentInput) { i.RegDeadline = i.StartDate.Add(time.Hour) }), ErrTournamentInvalidDates},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), tt.actor, tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	created, err := f.svc.Create(context.Background(), f.organizer, validCreateInput(models.FormatRoundRobin))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Status != models.StatusDraft {
		t.Errorf("status = %s, want draft", created.Status)
	}
	if created.ID == "" {
		t.Error("empty tournament id")
	}

	_, err = f.svc.Create(context.Background(), f.organizer, validCreateInput(models.FormatRoundRobin))
	if !errors.Is(err, ErrTournamentNameConflict) {
		t.Errorf("duplicate name err = %v, want ErrTournamentNameConflict", err)
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	f := newTournamentFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.organizer, validCreateInput(models.FormatRoundRobin))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := f.svc.UpdateStatus(ctx, f.organizer, created.ID, models.StatusOngoing); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Errorf("draft->ongoing err = %v, want ErrInvalidStatusTransition", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, Actor{UserID: "other"}, created.ID, models.StatusOpen); !errors.Is(err, ErrOrganizerOnly) {
		t.Errorf("foreign organizer err = %v, want ErrOrganizerOnly", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, f.organizer, created.ID, models.StatusOpen); err != nil {
		t.Fatalf("draft->open: %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, f.organizer, created.ID, models.StatusCancelled); err != nil {
		t.Fatalf("open->cancelled: %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, f.organizer, created.ID, models.StatusOpen); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Errorf("cancelled->open err = %v, want ErrInvalidStatusTransition", err)
	}
}

func TestStartGeneratesRoundRobinFixtures(t *testing.T) {
	f := newTournamentFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.organizer, validCreateInput(models.FormatRoundRobin))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.seedTeams(t, created.ID, 4)

	for _, status := range []models.TournamentStatus{models.StatusOpen, models.StatusClosed, models.StatusOngoing} {
		if _, err := f.svc.UpdateStatus(ctx, f.organizer, created.ID, status); err != nil {
			t.Fatalf("transition to %s: %v", status, err)
		}
	}

	matches, err := f.matchRepo.ListByTournament(ctx, created.ID, repositories.ListMatchesFilter{})
	if err != nil {
		t.Fatalf("list matches: %v", err)
	}
	// 4 teams, single round-robin: 6 matches over 3 rounds.
	if len(matches) != 6 {
		t.Fatalf("generated %d matches, want 6", len(matches))
	}
	for _, m := range matches {
		if m.Phase != models.PhaseGroup {
			t.Errorf("match %s phase = %s, want group", m.ID, m.Phase)
		}
		if m.Status != models.MatchStatusScheduled {
			t.Errorf("match %s status = %s, want scheduled", m.ID, m.Status)
		}
	}
}

func TestStartWithoutTeams(t *testing.T) {
	f := newTournamentFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.organizer, validCreateInput(models.FormatElimination))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, status := range []models.TournamentStatus{models.StatusOpen, models.StatusClosed} {
		if _, err := f.svc.UpdateStatus(ctx, f.organizer, created.ID, status); err != nil {
			t.Fatalf("transition to %s: %v", status, err)
		}
	}

	_, err = f.svc.UpdateStatus(ctx, f.organizer, created.ID, models.StatusOngoing)
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("err = %v, want ErrValidationFailed", err)
	}
}

func TestCancelScrubsSchedule(t *testing.T) {
	f := newTournamentFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.organizer, validCreateInput(models.FormatRoundRobin))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.seedTeams(t, created.ID, 4)
	for _, status := range []models.TournamentStatus{models.StatusOpen, models.StatusClosed, models.StatusOngoing} {
		if _, err := f.svc.UpdateStatus(ctx, f.organizer, created.ID, status); err != nil {
			t.Fatalf("transition to %s: %v", status, err)
		}
	}

	if _, err := f.svc.UpdateStatus(ctx, f.organizer, created.ID, models.StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	matches, _ := f.matchRepo.ListByTournament(ctx, created.ID, repositories.ListMatchesFilter{})
	for _, m := range matches {
		if m.Status != models.MatchStatusCancelled {
			t.Errorf("match %s status = %s, want cancelled", m.ID, m.Status)
		}
	}
}

func TestGetStandingsFormats(t *testing.T) {
	f := newTournamentFixture(t)
	ctx := context.Background()

	elim, err := f.svc.Create(ctx, f.organizer, validCreateInput(models.FormatElimination))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.svc.GetStandings(ctx, elim.ID); !errors.Is(err, ErrStandingsNotAvailable) {
		t.Errorf("elimination standings err = %v, want ErrStandingsNotAvailable", err)
	}
	if _, err := f.svc.GetBracket(ctx, elim.ID); err != nil {
		t.Errorf("elimination bracket err = %v", err)
	}

	input := validCreateInput(models.FormatRoundRobin)
	input.Name = "League"
	league, err := f.svc.Create(ctx, f.organizer, input)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.svc.GetBracket(ctx, league.ID); !errors.Is(err, ErrBracketNotAvailable) {
		t.Errorf("round robin bracket err = %v, want ErrBracketNotAvailable", err)
	}
	if _, err := f.svc.GetStandings(ctx, league.ID); err != nil {
		t.Errorf("round robin standings err = %v", err)
	}
}

func TestGetStandingsCaching(t *testing.T) {
	f := newTournamentFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.organizer, validCreateInput(models.FormatRoundRobin))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	teams := f.seedTeams(t, created.ID, 2)
	match := &models.Match{
		ID: "g1", TournamentID: created.ID, Phase: models.PhaseGroup, Round: 1, Slot: 1,
		HomeTeamID: &teams[0].ID, AwayTeamID: &teams[1].ID, Status: models.MatchStatusScheduled, Version: 1,
	}
	if err := f.matchRepo.Create(ctx, nil, match); err != nil {
		t.Fatalf("create match: %v", err)
	}

	first, err := f.svc.GetStandings(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetStandings: %v", err)
	}
	if first[0].Played != 0 {
		t.Fatalf("played = %d, want 0", first[0].Played)
	}

	// Complete the match behind the service's back: the cached view must
	// survive until invalidation.
	if err := f.matchRepo.UpdateResult(ctx, nil, "g1", 1, 2, 0, &teams[0].ID); err != nil {
		t.Fatalf("update result: %v", err)
	}
	cached, err := f.svc.GetStandings(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetStandings cached: %v", err)
	}
	if cached[0].Played != 0 {
		t.Fatalf("cached view changed without invalidation")
	}

	f.cache.Invalidate(created.ID)
	fresh, err := f.svc.GetStandings(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetStandings fresh: %v", err)
	}
	if fresh[0].Played != 1 || fresh[0].Points != 3 {
		t.Fatalf("fresh view = played %d points %d, want 1 and 3", fresh[0].Played, fresh[0].Points)
	}
}

func TestStartKnockoutStageMixed(t *testing.T) {
	f := newTournamentFixture(t)
	ctx := context.Background()

	input := validCreateInput(models.FormatMixed)
	created, err := f.svc.Create(ctx, f.organizer, input)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.seedTeams(t, created.ID, 4)
	for _, status := range []models.TournamentStatus{models.StatusOpen, models.StatusClosed, models.StatusOngoing} {
		if _, err := f.svc.UpdateStatus(ctx, f.organizer, created.ID, status); err != nil {
			t.Fatalf("transition to %s: %v", status, err)
		}
	}

	if _, err := f.svc.StartKnockoutStage(ctx, f.organizer, created.ID); !errors.Is(err, ErrRoundIncomplete) {
		t.Fatalf("unfinished groups err = %v, want ErrRoundIncomplete", err)
	}

	// Finish every group match: home side always wins.
	groupMatches, _ := f.matchRepo.ListByTournament(ctx, created.ID, repositories.ListMatchesFilter{})
	for _, m := range groupMatches {
		if err := f.matchRepo.UpdateResult(ctx, nil, m.ID, m.Version, 1, 0, m.HomeTeamID); err != nil {
			t.Fatalf("finish match %s: %v", m.ID, err)
		}
	}

	knockout, err := f.svc.StartKnockoutStage(ctx, f.organizer, created.ID)
	if err != nil {
		t.Fatalf("StartKnockoutStage: %v", err)
	}
	// One group of four sends two seeds: a single final.
	if len(knockout) != 1 {
		t.Fatalf("knockout matches = %d, want 1", len(knockout))
	}
	if knockout[0].Phase != models.PhaseKnockout {
		t.Errorf("phase = %s, want knockout", knockout[0].Phase)
	}
	if knockout[0].HomeTeamID == nil || knockout[0].AwayTeamID == nil {
		t.Fatal("final is missing a seed")
	}

	if _, err := f.svc.StartKnockoutStage(ctx, f.organizer, created.ID); !errors.Is(err, ErrKnockoutAlreadyStarted) {
		t.Errorf("second start err = %v, want ErrKnockoutAlreadyStarted", err)
	}
}
