package brackets

import (
	"context"
	"math/bits"
	"sort"

	"github.com/Emerc92/futsapp-tournament-hub/models"
)

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() FixtureGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) Name() string {
	return "SingleElimination"
}

// Generate builds the whole knockout skeleton up front: real first-round
// matches plus placeholder matches for every later round. Slots of later
// rounds are filled in as feeder matches complete; byes are pre-filled into
// their round-2 slot at generation time.
func (g *SingleEliminationGenerator) Generate(_ context.Context, params GenerateParams) ([]Pairing, error) {
	teams := make([]models.Team, len(params.Teams))
	copy(teams, params.Teams)
	sort.SliceStable(teams, func(i, j int) bool {
		return teams[i].CreatedAt.Before(teams[j].CreatedAt)
	})
	return GenerateKnockout(teams)
}

// TotalRounds is the number of rounds needed to decide a champion among n
// teams: ceil(log2(n)).
func TotalRounds(teamCount int) int {
	if teamCount < 2 {
		return 0
	}
	return bits.Len(uint(teamCount - 1))
}

// NextSlot maps a decided knockout match to the slot its winner advances
// into. Odd slots feed the home side of the next match, even slots the away
// side.
func NextSlot(round, slot int) (nextRound, nextSlot int, home bool) {
	return round + 1, (slot + 1) / 2, slot%2 == 1
}

// GenerateKnockout pairs the given seed order sequentially (1v2, 3v4, ...).
// When the team count is not a power of two, the lowest seeds (the latest
// registrants) receive byes and enter in round 2 without a first-round
// match.
func GenerateKnockout(seeds []models.Team) ([]Pairing, error) {
	n := len(seeds)
	if n < 2 {
		return nil, ErrNotEnoughTeams
	}

	totalRounds := TotalRounds(n)
	bracketSize := 1 << totalRounds
	byes := bracketSize - n
	firstRoundMatches := (n - byes) / 2

	pairings := make([]Pairing, 0, bracketSize-1)

	for s := 1; s <= firstRoundMatches; s++ {
		home := seeds[2*s-2].ID
		away := seeds[2*s-1].ID
		pairings = append(pairings, Pairing{
			Phase:      models.PhaseKnockout,
			Round:      1,
			Slot:       s,
			HomeTeamID: &home,
			AwayTeamID: &away,
		})
	}

	// Placeholder matches for every later round.
	for r := 2; r <= totalRounds; r++ {
		matchesInRound := 1 << (totalRounds - r)
		for s := 1; s <= matchesInRound; s++ {
			pairings = append(pairings, Pairing{
				Phase: models.PhaseKnockout,
				Round: r,
				Slot:  s,
			})
		}
	}

	// Round-2 entrants are the first-round winners (positions 1..m) followed
	// by the bye teams (positions m+1..). Pre-fill the bye positions.
	for i := 0; i < byes; i++ {
		position := firstRoundMatches + i + 1
		slot := (position + 1) / 2
		teamID := seeds[2*firstRoundMatches+i].ID
		for p := range pairings {
			if pairings[p].Round != 2 || pairings[p].Slot != slot {
				continue
			}
			if position%2 == 1 {
				pairings[p].HomeTeamID = &teamID
			} else {
				pairings[p].AwayTeamID = &teamID
			}
			break
		}
	}

	return pairings, nil
}

// BuildBracket assembles the read-only bracket view from the persisted
// knockout matches. A round-2 side that is populated while its feeder slot
// has no round-1 match is a bye; a synthetic round-1 node is emitted for it.
func BuildBracket(matches []models.Match) []models.BracketNode {
	knockout := make([]models.Match, 0, len(matches))
	round1Slots := make(map[int]bool)
	for i := range matches {
		if matches[i].Phase != models.PhaseKnockout {
			continue
		}
		knockout = append(knockout, matches[i])
		if matches[i].Round == 1 {
			round1Slots[matches[i].Slot] = true
		}
	}

	sort.Slice(knockout, func(i, j int) bool {
		if knockout[i].Round != knockout[j].Round {
			return knockout[i].Round < knockout[j].Round
		}
		return knockout[i].Slot < knockout[j].Slot
	})

	nodes := make([]models.BracketNode, 0, len(knockout))
	byeNodes := make([]models.BracketNode, 0)

	for i := range knockout {
		m := &knockout[i]
		id := m.ID
		nodes = append(nodes, models.BracketNode{
			Round:        m.Round,
			Slot:         m.Slot,
			MatchID:      &id,
			HomeTeamID:   m.HomeTeamID,
			AwayTeamID:   m.AwayTeamID,
			WinnerTeamID: m.WinnerTeamID,
			Status:       m.Status,
		})

		if m.Round != 2 {
			continue
		}
		homeFeeder := 2*m.Slot - 1
		awayFeeder := 2 * m.Slot
		if m.HomeTeamID != nil && !round1Slots[homeFeeder] {
			byeNodes = append(byeNodes, byeNode(homeFeeder, *m.HomeTeamID))
		}
		if m.AwayTeamID != nil && !round1Slots[awayFeeder] {
			byeNodes = append(byeNodes, byeNode(awayFeeder, *m.AwayTeamID))
		}
	}

	if len(byeNodes) == 0 {
		return nodes
	}
	all := append(byeNodes, nodes...)
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Round != all[j].Round {
			return all[i].Round < all[j].Round
		}
		return all[i].Slot < all[j].Slot
	})
	return all
}

func byeNode(slot int, teamID string) models.BracketNode {
	id := teamID
	return models.BracketNode{
		Round:        1,
		Slot:         slot,
		WinnerTeamID: &id,
		Status:       models.MatchStatusCompleted,
		Bye:          true,
		ByeTeamID:    &id,
	}
}
