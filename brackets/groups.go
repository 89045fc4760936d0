package brackets

import (
	"context"

	"github.com/Emerc92/futsapp-tournament-hub/models"
)

// DefaultGroupSize is how many teams a mixed-format group holds.
const DefaultGroupSize = 4

// SeedsPerGroup is how many teams each group sends to the knockout stage.
const SeedsPerGroup = 2

type Group struct {
	Label string
	Teams []models.Team
}

// GroupStageGenerator produces the group phase of a mixed tournament:
// teams are split into groups in registration order and each group plays a
// single round-robin.
type GroupStageGenerator struct {
	GroupSize int
}

func NewGroupStageGenerator(groupSize int) FixtureGenerator {
	if groupSize < 2 {
		groupSize = DefaultGroupSize
	}
	return &GroupStageGenerator{GroupSize: groupSize}
}

func (g *GroupStageGenerator) Name() string {
	return "GroupStage"
}

func (g *GroupStageGenerator) Generate(_ context.Context, params GenerateParams) ([]Pairing, error) {
	groups := SplitIntoGroups(params.Teams, g.GroupSize)
	if len(groups) == 0 {
		return nil, ErrNotEnoughTeams
	}
	pairings := make([]Pairing, 0)
	// Slots are renumbered across groups so (round, slot) stays unique
	// tournament-wide.
	nextSlot := make(map[int]int)
	for gi := range groups {
		label := groups[gi].Label
		for _, p := range roundRobinPairings(groups[gi].Teams, &label) {
			nextSlot[p.Round]++
			p.Slot = nextSlot[p.Round]
			pairings = append(pairings, p)
		}
	}
	return pairings, nil
}

// SplitIntoGroups fills groups sequentially in registration order and
// labels them "A", "B", ... A trailing group smaller than two teams is
// merged into its predecessor.
func SplitIntoGroups(teams []models.Team, groupSize int) []Group {
	if len(teams) < 2 {
		return nil
	}
	if groupSize < 2 {
		groupSize = DefaultGroupSize
	}

	groups := make([]Group, 0, (len(teams)+groupSize-1)/groupSize)
	for start := 0; start < len(teams); start += groupSize {
		end := start + groupSize
		if end > len(teams) {
			end = len(teams)
		}
		label := string(rune('A' + len(groups)))
		groups = append(groups, Group{Label: label, Teams: teams[start:end]})
	}

	last := len(groups) - 1
	if last > 0 && len(groups[last].Teams) < 2 {
		groups[last-1].Teams = append(append([]models.Team{}, groups[last-1].Teams...), groups[last].Teams...)
		groups = groups[:last]
	}
	return groups
}

// GroupStandings ranks each group separately against its own matches and
// returns the concatenated tables in group order.
func GroupStandings(groups []Group, matches []models.Match) []models.Standing {
	byLabel := make(map[string][]models.Match, len(groups))
	for i := range matches {
		m := matches[i]
		if m.Phase != models.PhaseGroup || m.GroupLabel == nil {
			continue
		}
		byLabel[*m.GroupLabel] = append(byLabel[*m.GroupLabel], m)
	}

	out := make([]models.Standing, 0)
	for gi := range groups {
		label := groups[gi].Label
		rows := ComputeStandings(groups[gi].Teams, byLabel[label])
		for i := range rows {
			l := label
			rows[i].GroupLabel = &l
		}
		out = append(out, rows...)
	}
	return out
}

// KnockoutSeeds picks the top finishers of every group once the whole group
// stage is complete. Seeds alternate group winners (in group order) with
// runners-up rotated forward by one group, so sequential pairing matches
// every winner against a runner-up from another group: A1 vs B2, B1 vs C2,
// C1 vs A2.
func KnockoutSeeds(groups []Group, matches []models.Match) ([]models.Team, error) {
	for i := range matches {
		if matches[i].Phase == models.PhaseGroup && matches[i].Status == models.MatchStatusScheduled {
			return nil, ErrGroupStageIncomplete
		}
	}

	teamsByID := make(map[string]models.Team)
	for gi := range groups {
		for _, t := range groups[gi].Teams {
			teamsByID[t.ID] = t
		}
	}

	standings := GroupStandings(groups, matches)
	winners := make([]models.Team, 0, len(groups))
	runners := make([]models.Team, 0, len(groups))
	for _, row := range standings {
		switch row.Rank {
		case 1:
			winners = append(winners, teamsByID[row.TeamID])
		case 2:
			runners = append(runners, teamsByID[row.TeamID])
		}
	}

	seeds := make([]models.Team, 0, len(winners)+len(runners))
	for i := range winners {
		seeds = append(seeds, winners[i])
		if len(runners) > 0 && i < len(runners) {
			seeds = append(seeds, runners[(i+1)%len(runners)])
		}
	}
	if len(seeds) < 2 {
		return nil, ErrNotEnoughTeams
	}
	return seeds, nil
}
