package service

import "errors"

// Sentinel errors returned by the Service.
var (
	ErrNotStarted  = errors.New("service not started")
	ErrBusy        = errors.New("recompute queue is full")
	ErrUnknownTour = errors.New("tour not served")
	ErrNoRoster    = errors.New("no roster provider configured")
)
