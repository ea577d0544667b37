// Package repository publishes computed rating snapshots and serves reads
// against the latest one per tour.
package repository

import (
	"context"

	"github.com/okian/courtform/internal/domain/model"
)

// Entry represents a leaderboard row.
type Entry struct {
	Rank       int     `json:"rank"`
	Name       string  `json:"name"`
	Elo        float64 `json:"elo"`
	Momentum   float64 `json:"momentum"`
	WeekDelta  float64 `json:"weekDelta"`
	MatchCount int     `json:"matchCount"`
}

// Store provides access to the published rating snapshots.
type Store interface {
	// Publish replaces the tour's snapshot wholesale.
	Publish(ctx context.Context, snap *Snapshot) error

	// Snapshot returns the latest snapshot for a tour.
	// Returns ErrNoSnapshot before the first publish.
	Snapshot(ctx context.Context, tour model.Tour) (*Snapshot, error)

	// Get returns a player's record, matching the exact name first and the
	// normalized name second. Returns ErrNotFound if the player is unknown.
	Get(ctx context.Context, tour model.Tour, name string) (model.RatingRecord, error)

	// PeerRank returns the player's 1-based form rank among rated players.
	// Returns ErrNotRanked for players without processed matches.
	PeerRank(ctx context.Context, tour model.Tour, name string) (int, error)

	// TopN returns the top-N rated players ordered by form desc.
	TopN(ctx context.Context, tour model.Tour, n int) ([]Entry, error)

	// Count returns the number of records in the tour's snapshot.
	Count(ctx context.Context, tour model.Tour) int
}
