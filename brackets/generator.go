package brackets

import (
	"context"
	"errors"

	"github.com/Emerc92/futsapp-tournament-hub/models"
)

var (
	ErrNotEnoughTeams       = errors.New("not enough teams to generate fixtures (minimum 2)")
	ErrGroupStageIncomplete = errors.New("group stage has unfinished matches")
)

// Pairing is one fixture produced by a generator, before persistence.
// Knockout pairings for rounds beyond the first may have nil team sides:
// those are placeholder slots filled as feeder matches complete. Sides that
// are pre-filled in round 2 while their feeder slot has no round-1 match
// represent byes.
type Pairing struct {
	Phase      models.MatchPhase
	Round      int
	Slot       int
	GroupLabel *string
	HomeTeamID *string
	AwayTeamID *string
}

type GenerateParams struct {
	Tournament *models.Tournament
	// Teams in registration order, earliest first. Order is the seeding.
	Teams []models.Team
}

// FixtureGenerator turns a registered team list into the complete fixture
// list for a tournament phase.
type FixtureGenerator interface {
	Generate(ctx context.Context, params GenerateParams) ([]Pairing, error)
	Name() string
}
