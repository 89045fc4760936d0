package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Emerc92/futsapp-tournament-hub/models"
	"github.com/Emerc92/futsapp-tournament-hub/repositories"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTxRunner satisfies TxRunner without a database: the callback runs with
// a nil executor, which the fakes ignore. The mutex serialises callbacks the
// way a row lock inside a real transaction would.
type fakeTxRunner struct {
	mu sync.Mutex
}

func (r *fakeTxRunner) RunInTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(nil)
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) UpdateAvatarKey(_ context.Context, userID string, avatarKey *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.AvatarKey = avatarKey
	return nil
}

type fakeTournamentRepo struct {
	mu          sync.Mutex
	tournaments map[string]*models.Tournament
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{tournaments: make(map[string]*models.Tournament)}
}

func (r *fakeTournamentRepo) Create(_ context.Context, t *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.tournaments {
		if existing.OrganizerID == t.OrganizerID && existing.Name == t.Name {
			return repositories.ErrTournamentNameConflict
		}
	}
	cp := *t
	r.tournaments[t.ID] = &cp
	return nil
}

func (r *fakeTournamentRepo) GetByID(_ context.Context, id string) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTournamentRepo) GetForUpdate(ctx context.Context, _ repositories.SQLExecutor, id string) (*models.Tournament, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeTournamentRepo) List(_ context.Context, _ repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Tournament, 0, len(r.tournaments))
	for _, t := range r.tournaments {
		out = append(out, *t)
	}
	return out, nil
}

func (r *fakeTournamentRepo) Update(_ context.Context, t *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tournaments[t.ID]; !ok {
		return repositories.ErrTournamentNotFound
	}
	cp := *t
	r.tournaments[t.ID] = &cp
	return nil
}

func (r *fakeTournamentRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id string, status models.TournamentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	return nil
}

func (r *fakeTournamentRepo) SetChampion(_ context.Context, _ repositories.SQLExecutor, id string, championTeamID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.ChampionTeamID = championTeamID
	return nil
}

func (r *fakeTournamentRepo) UpdateLogoKey(_ context.Context, id string, logoKey *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.LogoKey = logoKey
	return nil
}

func (r *fakeTournamentRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.tournaments, id)
	return nil
}

type fakeTeamRepo struct {
	mu    sync.Mutex
	teams []*models.Team // insertion order doubles as registration order
}

func newFakeTeamRepo() *fakeTeamRepo {
	return &fakeTeamRepo{}
}

func (r *fakeTeamRepo) Create(_ context.Context, _ repositories.SQLExecutor, team *models.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.teams {
		if t.TournamentID != team.TournamentID {
			continue
		}
		if t.Name == team.Name {
			return repositories.ErrTeamNameConflict
		}
		if t.CaptainID == team.CaptainID {
			return repositories.ErrTeamCaptainConflict
		}
	}
	cp := *team
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().Add(time.Duration(len(r.teams)) * time.Millisecond)
	}
	r.teams = append(r.teams, &cp)
	return nil
}

func (r *fakeTeamRepo) GetByID(_ context.Context, id string) (*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.teams {
		if t.ID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repositories.ErrTeamNotFound
}

func (r *fakeTeamRepo) ListByTournament(_ context.Context, tournamentID string) ([]models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Team, 0)
	for _, t := range r.teams {
		if t.TournamentID == tournamentID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *fakeTeamRepo) CountByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, t := range r.teams {
		if t.TournamentID == tournamentID {
			count++
		}
	}
	return count, nil
}

func (r *fakeTeamRepo) FindByCaptain(_ context.Context, tournamentID, captainID string) (*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.teams {
		if t.TournamentID == tournamentID && t.CaptainID == captainID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repositories.ErrTeamNotFound
}

func (r *fakeTeamRepo) SetPaid(_ context.Context, id string, paid bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.teams {
		if t.ID == id {
			t.Paid = paid
			return nil
		}
	}
	return repositories.ErrTeamNotFound
}

func (r *fakeTeamRepo) UpdateLogoKey(_ context.Context, id string, logoKey *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.teams {
		if t.ID == id {
			t.LogoKey = logoKey
			return nil
		}
	}
	return repositories.ErrTeamNotFound
}

func (r *fakeTeamRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, t := range r.teams {
		if t.ID == id {
			r.teams = append(r.teams[:i], r.teams[i+1:]...)
			return nil
		}
	}
	return repositories.ErrTeamNotFound
}

type fakeRosterRepo struct {
	mu      sync.Mutex
	members []*models.TeamMember
}

func newFakeRosterRepo() *fakeRosterRepo {
	return &fakeRosterRepo{}
}

func (r *fakeRosterRepo) Create(_ context.Context, _ repositories.SQLExecutor, member *models.TeamMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m.TeamID == member.TeamID && m.UserID == member.UserID {
			return repositories.ErrRosterUserConflict
		}
	}
	cp := *member
	r.members = append(r.members, &cp)
	return nil
}

func (r *fakeRosterRepo) CreateBatch(ctx context.Context, exec repositories.SQLExecutor, members []*models.TeamMember) error {
	for _, m := range members {
		if err := r.Create(ctx, exec, m); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeRosterRepo) ListByTeam(_ context.Context, teamID string) ([]models.TeamMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.TeamMember, 0)
	for _, m := range r.members {
		if m.TeamID == teamID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeRosterRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.members {
		if m.ID == id {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return nil
		}
	}
	return repositories.ErrRosterEntryNotFound
}

func (r *fakeRosterRepo) DeleteByTeam(_ context.Context, _ repositories.SQLExecutor, teamID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.members[:0]
	for _, m := range r.members {
		if m.TeamID != teamID {
			kept = append(kept, m)
		}
	}
	r.members = kept
	return nil
}

type fakeMatchRepo struct {
	mu      sync.Mutex
	matches []*models.Match
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{}
}

func (r *fakeMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, match *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.matches {
		if m.TournamentID == match.TournamentID && m.Phase == match.Phase &&
			m.Round == match.Round && m.Slot == match.Slot {
			return repositories.ErrMatchSlotConflict
		}
	}
	cp := *match
	if cp.Version == 0 {
		cp.Version = 1
	}
	r.matches = append(r.matches, &cp)
	return nil
}

func (r *fakeMatchRepo) get(id string) *models.Match {
	for _, m := range r.matches {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (r *fakeMatchRepo) GetByID(_ context.Context, id string) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.get(id)
	if m == nil {
		return nil, repositories.ErrMatchNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMatchRepo) ListByTournament(_ context.Context, tournamentID string, filter repositories.ListMatchesFilter) ([]models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Match, 0)
	for _, m := range r.matches {
		if m.TournamentID != tournamentID {
			continue
		}
		if filter.Phase != nil && m.Phase != *filter.Phase {
			continue
		}
		if filter.Round != nil && m.Round != *filter.Round {
			continue
		}
		if filter.Status != nil && m.Status != *filter.Status {
			continue
		}
		out = append(out, *m)
	}
	return out, nil
}

func (r *fakeMatchRepo) FindBySlot(_ context.Context, _ repositories.SQLExecutor, tournamentID string, round, slot int) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.matches {
		if m.TournamentID == tournamentID && m.Phase == models.PhaseKnockout &&
			m.Round == round && m.Slot == slot {
			cp := *m
			return &cp, nil
		}
	}
	return nil, repositories.ErrMatchNotFound
}

func (r *fakeMatchRepo) UpdateResult(_ context.Context, _ repositories.SQLExecutor, id string, expectedVersion int, homeScore, awayScore int, winnerTeamID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.get(id)
	if m == nil {
		return repositories.ErrMatchNotFound
	}
	if m.Version != expectedVersion {
		return repositories.ErrMatchVersionConflict
	}
	hs, as := homeScore, awayScore
	m.HomeScore = &hs
	m.AwayScore = &as
	m.WinnerTeamID = winnerTeamID
	m.Status = models.MatchStatusCompleted
	m.Version++
	return nil
}

func (r *fakeMatchRepo) SetSlotTeam(_ context.Context, _ repositories.SQLExecutor, id string, home bool, teamID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.get(id)
	if m == nil {
		return repositories.ErrMatchNotFound
	}
	id2 := teamID
	if home {
		m.HomeTeamID = &id2
	} else {
		m.AwayTeamID = &id2
	}
	m.Version++
	return nil
}

func (r *fakeMatchRepo) Cancel(_ context.Context, _ repositories.SQLExecutor, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.get(id)
	if m == nil || m.Status != models.MatchStatusScheduled {
		return repositories.ErrMatchNotFound
	}
	m.Status = models.MatchStatusCancelled
	m.Version++
	return nil
}

func (r *fakeMatchRepo) CancelScheduledByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.matches {
		if m.TournamentID == tournamentID && m.Status == models.MatchStatusScheduled {
			m.Status = models.MatchStatusCancelled
			m.Version++
		}
	}
	return nil
}
