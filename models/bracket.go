package models

// BracketNode is the read-only view of one knockout slot: the match played
// in it (if any), the teams feeding it and the team that advanced. Nodes
// with Bye set advanced a team without a match being played.
type BracketNode struct {
	Round        int         `json:"round"`
	Slot         int         `json:"slot"`
	MatchID      *string     `json:"match_id,omitempty"`
	HomeTeamID   *string     `json:"home_team_id,omitempty"`
	AwayTeamID   *string     `json:"away_team_id,omitempty"`
	WinnerTeamID *string     `json:"winner_team_id,omitempty"`
	Status       MatchStatus `json:"status"`
	Bye          bool        `json:"bye,omitempty"`
	ByeTeamID    *string     `json:"bye_team_id,omitempty"`
}
