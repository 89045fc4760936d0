package models

import "time"

type MatchStatus string

const (
	MatchStatusScheduled MatchStatus = "scheduled"
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusCancelled MatchStatus = "cancelled"
)

// MatchPhase separates the points-table phase from the elimination phase.
// round_robin tournaments only ever have group matches, elimination only
// knockout ones; mixed tournaments have both.
type MatchPhase string

const (
	PhaseGroup    MatchPhase = "group"
	PhaseKnockout MatchPhase = "knockout"
)

// Match is one ledger entry. HomeTeamID/AwayTeamID are nil while the slot
// waits for a feeder match to complete (knockout placeholders). Version is
// the compare-and-set token for result writes: a result update only applies
// when the caller presents the version it read.
type Match struct {
	ID           string      `json:"id" db:"id"`
	TournamentID string      `json:"tournament_id" db:"tournament_id"`
	Phase        MatchPhase  `json:"phase" db:"phase"`
	Round        int         `json:"round" db:"round"`
	Slot         int         `json:"slot" db:"slot"`
	GroupLabel   *string     `json:"group_label,omitempty" db:"group_label"`
	HomeTeamID   *string     `json:"home_team_id,omitempty" db:"home_team_id"`
	AwayTeamID   *string     `json:"away_team_id,omitempty" db:"away_team_id"`
	KickoffTime  time.Time   `json:"kickoff_time" db:"kickoff_time"`
	Venue        *string     `json:"venue,omitempty" db:"venue"`
	Status       MatchStatus `json:"status" db:"status"`
	HomeScore    *int        `json:"home_score,omitempty" db:"home_score"`
	AwayScore    *int        `json:"away_score,omitempty" db:"away_score"`
	WinnerTeamID *string     `json:"winner_team_id,omitempty" db:"winner_team_id"`
	Version      int         `json:"version" db:"version"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`

	HomeTeam *Team `json:"home_team,omitempty" db:"-"`
	AwayTeam *Team `json:"away_team,omitempty" db:"-"`
}

// Completed holds exactly when both scores are present.
func (m *Match) Completed() bool {
	return m.Status == MatchStatusCompleted && m.HomeScore != nil && m.AwayScore != nil
}

func (m *Match) HasTeam(teamID string) bool {
	if m.HomeTeamID != nil && *m.HomeTeamID == teamID {
		return true
	}
	return m.AwayTeamID != nil && *m.AwayTeamID == teamID
}
