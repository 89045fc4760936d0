package models

import "time"

// TeamMember is one roster entry. Exactly one member per team carries the
// captain flag; the team service keeps that invariant on every mutation.
type TeamMember struct {
	ID           string    `json:"id" db:"id"`
	TeamID       string    `json:"team_id" db:"team_id"`
	UserID       string    `json:"user_id" db:"user_id"`
	JerseyNumber *int      `json:"jersey_number,omitempty" db:"jersey_number"`
	Position     *string   `json:"position,omitempty" db:"position"`
	IsCaptain    bool      `json:"is_captain" db:"is_captain"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`

	User *User `json:"user,omitempty" db:"-"`
}
