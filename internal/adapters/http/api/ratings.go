package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/courtform/internal/adapters/repository"
	"github.com/okian/courtform/internal/domain/model"
)

const defaultLimit = 20

// RatingDependencies defines the read operations over published ratings.
type RatingDependencies interface {
	TopN(ctx context.Context, tour model.Tour, n int) ([]Entry, error)
	GetRating(ctx context.Context, name string, tour model.Tour) (model.RatingRecord, error)
	GetPeerRank(ctx context.Context, name string, tour model.Tour) (int, error)
}

// RatingsHandler serves leaderboards and single player records.
type RatingsHandler struct {
	deps     RatingDependencies
	maxLimit int
}

// NewRatingsHandler creates a new ratings handler.
func NewRatingsHandler(deps RatingDependencies, maxLimit int) *RatingsHandler {
	if maxLimit < 1 {
		maxLimit = defaultLimit
	}
	return &RatingsHandler{deps: deps, maxLimit: maxLimit}
}

// playerResponse is a RatingRecord plus its peer rank; rank is null for
// players without rated matches.
type playerResponse struct {
	model.RatingRecord
	Tour     model.Tour `json:"tour"`
	PeerRank *int       `json:"peerRank"`
}

// HandleTop handles GET /ratings/{tour}?limit=N requests.
func (h *RatingsHandler) HandleTop(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_ratings"
	tour, err := parseTour(r)
	if err != nil {
		writeLookupError(w, err)
		return
	}

	n := min(defaultLimit, h.maxLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err = strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: limit must be a positive integer", op, ErrBadRequest))
			return
		}
		if n > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", fmt.Errorf("%s: %w: limit above %d", op, ErrBadRequest, h.maxLimit))
			return
		}
	}

	entries, err := h.deps.TopN(r.Context(), tour, n)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandlePlayer handles GET /ratings/{tour}/{name} requests.
func (h *RatingsHandler) HandlePlayer(w http.ResponseWriter, r *http.Request) {
	tour, err := parseTour(r)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	name := r.PathValue("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	rec, err := h.deps.GetRating(r.Context(), name, tour)
	if err != nil {
		writeLookupError(w, err)
		return
	}

	resp := playerResponse{RatingRecord: rec, Tour: tour}
	rank, err := h.deps.GetPeerRank(r.Context(), rec.Name, tour)
	switch {
	case err == nil:
		resp.PeerRank = &rank
	case errors.Is(err, repository.ErrNotRanked):
	default:
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
