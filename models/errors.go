package models

import "errors"

var (
	// ErrTeamNotFound is returned when no roster is registered under a mascot name.
	ErrTeamNotFound = errors.New("team not found")

	// ErrEmptyRoster is returned for a team with no batters in its lineup.
	ErrEmptyRoster = errors.New("roster has no batters")

	// ErrInvalidProfile is returned when career counters are inconsistent.
	ErrInvalidProfile = errors.New("invalid stat profile")

	// ErrInvalidLineup is returned for lineups that cannot complete a half-inning.
	ErrInvalidLineup = errors.New("invalid lineup")

	// ErrScorelessMatchup is returned when neither lineup can ever reach base,
	// so a tied game could never be decided.
	ErrScorelessMatchup = errors.New("neither team can reach base")

	ErrDuplicateTeam   = errors.New("team already registered")
	ErrInvalidSchedule = errors.New("invalid schedule")
	ErrInvalidRules    = errors.New("invalid game rules")
)
