package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnknownSkill = errors.New("unknown skill")
	ErrNotRanked    = errors.New("player not ranked")
)
