package brackets

import (
	"context"
	"sort"

	"github.com/Emerc92/futsapp-tournament-hub/models"
)

const (
	pointsWin  = 3
	pointsDraw = 1
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() FixtureGenerator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) Name() string {
	return "RoundRobin"
}

// Generate produces a single round-robin: every team plays every other team
// once, spread over matchdays with the circle method so no team appears
// twice in the same round.
func (g *RoundRobinGenerator) Generate(_ context.Context, params GenerateParams) ([]Pairing, error) {
	if len(params.Teams) < 2 {
		return nil, ErrNotEnoughTeams
	}
	return roundRobinPairings(params.Teams, nil), nil
}

// roundRobinPairings schedules all pairs of teams with the circle method:
// one team is fixed, the rest rotate one position per round. Odd team
// counts get a phantom slot whose opponent sits the round out.
func roundRobinPairings(teams []models.Team, groupLabel *string) []Pairing {
	ids := make([]*string, 0, len(teams)+1)
	for i := range teams {
		id := teams[i].ID
		ids = append(ids, &id)
	}
	if len(ids)%2 != 0 {
		ids = append(ids, nil) // phantom opponent, pairing skipped
	}

	n := len(ids)
	rounds := n - 1
	pairings := make([]Pairing, 0, rounds*n/2)

	for r := 1; r <= rounds; r++ {
		slot := 1
		for i := 0; i < n/2; i++ {
			home := ids[i]
			away := ids[n-1-i]
			if home == nil || away == nil {
				continue
			}
			pairings = append(pairings, Pairing{
				Phase:      models.PhaseGroup,
				Round:      r,
				Slot:       slot,
				GroupLabel: groupLabel,
				HomeTeamID: home,
				AwayTeamID: away,
			})
			slot++
		}
		// Rotate everything except the first element.
		last := ids[n-1]
		copy(ids[2:], ids[1:n-1])
		ids[1] = last
	}
	return pairings
}

// ComputeStandings derives the points table for the given teams from the
// completed matches in the ledger. It is a pure function: same input, same
// ordered output. Scheduled and cancelled matches are ignored, as are
// matches referencing teams outside the given set.
//
// Ordering: points desc, goal difference desc, goals for desc, team name
// asc. Ranks are stable 1-based ordinals, no competition-rank merging.
func ComputeStandings(teams []models.Team, matches []models.Match) []models.Standing {
	index := make(map[string]*models.Standing, len(teams))
	rows := make([]*models.Standing, 0, len(teams))
	for i := range teams {
		row := &models.Standing{
			TeamID:   teams[i].ID,
			TeamName: teams[i].Name,
		}
		index[teams[i].ID] = row
		rows = append(rows, row)
	}

	for i := range matches {
		m := &matches[i]
		if !m.Completed() || m.HomeTeamID == nil || m.AwayTeamID == nil {
			continue
		}
		home := index[*m.HomeTeamID]
		away := index[*m.AwayTeamID]
		if home == nil || away == nil {
			continue
		}

		hs, as := *m.HomeScore, *m.AwayScore
		home.Played++
		away.Played++
		home.GoalsFor += hs
		home.GoalsAgainst += as
		away.GoalsFor += as
		away.GoalsAgainst += hs

		switch {
		case hs > as:
			home.Wins++
			home.Points += pointsWin
			away.Losses++
		case hs < as:
			away.Wins++
			away.Points += pointsWin
			home.Losses++
		default:
			home.Draws++
			away.Draws++
			home.Points += pointsDraw
			away.Points += pointsDraw
		}
	}

	for _, row := range rows {
		row.GoalDifference = row.GoalsFor - row.GoalsAgainst
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.GoalDifference != b.GoalDifference {
			return a.GoalDifference > b.GoalDifference
		}
		if a.GoalsFor != b.GoalsFor {
			return a.GoalsFor > b.GoalsFor
		}
		return a.TeamName < b.TeamName
	})

	out := make([]models.Standing, len(rows))
	for i, row := range rows {
		row.Rank = i + 1
		out[i] = *row
	}
	return out
}
