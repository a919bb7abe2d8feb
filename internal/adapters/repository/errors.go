package repository

import "errors"

// Sentinel kinds for leaderboard errors.
var (
	ErrNoSource     = errors.New("leaderboard has no record source")
	ErrUnknownSkill = errors.New("skill has no leaderboard")
)
