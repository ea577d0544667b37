package report

import (
	"time"

	"github.com/okian/courtform/internal/adapters/repository"
	"github.com/okian/courtform/internal/domain/model"
	"github.com/okian/courtform/internal/domain/rating"
)

// Config holds configuration for one report run
type Config struct {
	RosterFile string       // JSON roster document keyed by tour
	ParamsFile string       // Optional hyperparameter override document
	Tours      []model.Tour // Tours to rate; all when empty
	TopN       int          // Leaderboard rows per tour
	Player     string       // Optional player to include in full
	OutputFile string       // Destination; stdout when empty
	SeedDSN    string       // Postgres DSN; when set the roster is seeded instead of reported
	Verbose    bool         // Enable debug logging
}

// Report is the JSON document written by Run.
type Report struct {
	GeneratedAt time.Time    `json:"generatedAt"`
	ParamsFile  string       `json:"paramsFile,omitempty"`
	Tours       []TourReport `json:"tours"`
}

// TourReport summarizes one tour's pass.
type TourReport struct {
	Tour     model.Tour         `json:"tour"`
	Rejected int                `json:"rejected"`
	Stats    rating.PassStats   `json:"stats"`
	Top      []repository.Entry `json:"top"`
	Player   *PlayerReport      `json:"player,omitempty"`
}

// PlayerReport is a full record with its peer rank, when found.
type PlayerReport struct {
	model.RatingRecord
	PeerRank *int `json:"peerRank"`
}
