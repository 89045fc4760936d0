package services

import "errors"

// Sentinel errors shared across services and mapped to HTTP statuses in the
// handlers package. Three families: validation (bad input, never retried),
// state conflict (recoverable by re-reading current state), not found.
var (
	// Not found
	ErrNotFound           = errors.New("requested resource not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrMatchNotFound      = errors.New("match not found")

	// Validation
	ErrValidationFailed        = errors.New("validation failed")
	ErrPasswordTooShort        = errors.New("password is too short")
	ErrTeamNameRequired        = errors.New("team name is required")
	ErrTournamentNameRequired  = errors.New("tournament name is required")
	ErrTournamentInvalidFormat = errors.New("unknown tournament format")
	ErrTournamentInvalidSport  = errors.New("unknown sport kind")
	ErrTournamentInvalidFee    = errors.New("fees must not be negative")
	ErrTournamentInvalidDates  = errors.New("registration deadline must not be after start date, and end date must not precede start date")
	ErrTournamentInvalidCap    = errors.New("tournament capacity must be at least 2")
	ErrRosterTooLarge          = errors.New("roster exceeds the squad limit for this sport kind")
	ErrInvalidScore            = errors.New("scores must be non-negative integers")
	ErrInvalidMatchup          = errors.New("a match needs at least one real team")
	ErrNotificationEmpty       = errors.New("notification message is required")

	// State conflicts
	ErrCapacityExceeded        = errors.New("tournament has reached its team capacity")
	ErrRegistrationClosed      = errors.New("tournament registration is not open")
	ErrDuplicateCaptain        = errors.New("user already captains a team in this tournament")
	ErrTournamentLocked        = errors.New("tournament is ongoing or completed and can no longer be changed this way")
	ErrAlreadyCompleted        = errors.New("result can no longer be edited for a completed tournament")
	ErrDrawNotAllowed          = errors.New("knockout matches cannot end in a draw")
	ErrRoundIncomplete         = errors.New("previous round has unfinished matches")
	ErrConcurrentModification  = errors.New("match was modified concurrently, re-read and retry")
	ErrMatchCancelled          = errors.New("match is cancelled")
	ErrInvalidStatusTransition = errors.New("invalid tournament status transition")
	ErrKnockoutAlreadyStarted  = errors.New("knockout stage already exists")
	ErrDisqualifyKnockoutOnly  = errors.New("disqualification walkovers only apply to knockout matches")
	ErrStandingsNotAvailable   = errors.New("this tournament format has no points table")
	ErrBracketNotAvailable     = errors.New("this tournament format has no bracket")
	ErrTournamentNotOngoing    = errors.New("tournament is not ongoing")
	ErrRegistrationConflict    = errors.New("team name is already taken in this tournament")
	ErrTournamentNameConflict  = errors.New("tournament name already exists for this organizer")

	// Authentication / authorization
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrAuthEmailTaken         = errors.New("email is already taken")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")
	ErrOrganizerOnly          = errors.New("only the tournament organizer can perform this action")
	ErrCaptainOnly            = errors.New("only the team captain can perform this action")
)
