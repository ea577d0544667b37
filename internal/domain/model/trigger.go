package model

import "time"

// Trigger requests a full recomputation of every tour.
type Trigger struct {
	ID     string
	Reason string
	At     time.Time
}

// Trigger reasons.
const (
	ReasonStartup     = "startup"
	ReasonHyperparams = "hyperparams"
	ReasonManual      = "manual"
	ReasonRefresh     = "refresh"
)
