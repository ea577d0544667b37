package repository

import "errors"

// Sentinel kinds for rating store errors.
var (
	ErrNotFound     = errors.New("player not found")
	ErrNotRanked    = errors.New("player has no rated matches")
	ErrNoSnapshot   = errors.New("no ratings published for tour")
	ErrUnknownTour  = errors.New("unknown tour")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
)
