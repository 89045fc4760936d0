package models

import "time"

// Notification is an organizer message addressed to the captains of a
// tournament. Storage and listing only; there is no delivery pipeline.
type Notification struct {
	ID           string    `json:"id" db:"id"`
	TournamentID string    `json:"tournament_id" db:"tournament_id"`
	OrganizerID  string    `json:"organizer_id" db:"organizer_id"`
	Message      string    `json:"message" db:"message"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
