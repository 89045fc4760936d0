package models

import (
	"encoding/json"
	"time"
)

// TournamentFormat is the closed set of supported competition formats.
// Format dispatch happens once, in the tournament service; everything below
// that boundary works on matches and teams only.
type TournamentFormat string

const (
	FormatElimination TournamentFormat = "elimination"
	FormatRoundRobin  TournamentFormat = "round_robin"
	FormatMixed       TournamentFormat = "mixed"
)

func (f TournamentFormat) Valid() bool {
	switch f {
	case FormatElimination, FormatRoundRobin, FormatMixed:
		return true
	}
	return false
}

// HasGroupStage reports whether the format plays a points table phase.
func (f TournamentFormat) HasGroupStage() bool {
	return f == FormatRoundRobin || f == FormatMixed
}

// HasKnockoutStage reports whether the format plays an elimination phase.
func (f TournamentFormat) HasKnockoutStage() bool {
	return f == FormatElimination || f == FormatMixed
}

// SportKind tags the pitch size, e.g. "5v5", "7v7", "11v11".
type SportKind string

const (
	Sport5v5   SportKind = "5v5"
	Sport7v7   SportKind = "7v7"
	Sport11v11 SportKind = "11v11"
)

func (k SportKind) Valid() bool {
	switch k {
	case Sport5v5, Sport7v7, Sport11v11:
		return true
	}
	return false
}

// SquadLimit is the conventional maximum roster size for the sport kind.
// It is a soft bound enforced by the service layer, not the schema.
func (k SportKind) SquadLimit() int {
	switch k {
	case Sport5v5:
		return 10
	case Sport7v7:
		return 14
	default:
		return 22
	}
}

type TournamentStatus string

const (
	StatusDraft     TournamentStatus = "draft"
	StatusOpen      TournamentStatus = "open"
	StatusClosed    TournamentStatus = "closed"
	StatusOngoing   TournamentStatus = "ongoing"
	StatusCompleted TournamentStatus = "completed"
	StatusCancelled TournamentStatus = "cancelled"
)

func (s TournamentStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusOpen, StatusClosed, StatusOngoing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s TournamentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Tournament struct {
	ID             string           `json:"id" db:"id"`
	Name           string           `json:"name" db:"name"`
	City           string           `json:"city" db:"city"`
	Format         TournamentFormat `json:"format" db:"format"`
	SportKind      SportKind        `json:"sport_kind" db:"sport_kind"`
	Capacity       int              `json:"capacity" db:"capacity"`
	EntryFee       float64          `json:"entry_fee" db:"entry_fee"`
	MatchPrice     *float64         `json:"match_price,omitempty" db:"match_price"`
	StartDate      time.Time        `json:"start_date" db:"start_date"`
	EndDate        *time.Time       `json:"end_date,omitempty" db:"end_date"`
	RegDeadline    time.Time        `json:"reg_deadline" db:"reg_deadline"`
	Rules          json.RawMessage  `json:"rules,omitempty" db:"rules"`
	Status         TournamentStatus `json:"status" db:"status"`
	OrganizerID    string           `json:"organizer_id" db:"organizer_id"`
	ChampionTeamID *string          `json:"champion_team_id,omitempty" db:"champion_team_id"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`

	LogoKey *string `json:"-" db:"logo_key"`
	LogoURL *string `json:"logo_url,omitempty" db:"-"`

	// Linked entities, populated by the service layer when requested.
	Organizer *User   `json:"organizer,omitempty" db:"-"`
	Teams     []Team  `json:"teams,omitempty" db:"-"`
	Matches   []Match `json:"matches,omitempty" db:"-"`
}
