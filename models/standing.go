package models

// Standing is one team's row in a computed points table. Rows are never
// persisted as source of truth; they are recomputed from the match ledger
// and may only be cached with invalidation on every result write.
// All fields are integers: three points for a win, one for a draw.
type Standing struct {
	TeamID         string  `json:"team_id"`
	TeamName       string  `json:"team_name"`
	GroupLabel     *string `json:"group_label,omitempty"`
	Played         int     `json:"played"`
	Wins           int     `json:"wins"`
	Draws          int     `json:"draws"`
	Losses         int     `json:"losses"`
	GoalsFor       int     `json:"goals_for"`
	GoalsAgainst   int     `json:"goals_against"`
	GoalDifference int     `json:"goal_difference"`
	Points         int     `json:"points"`
	Rank           int     `json:"rank"`
}
