package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	service "github.com/okian/courtform/internal/app"
	"github.com/okian/courtform/internal/domain/dedupe"
	"github.com/okian/courtform/internal/domain/model"
)

// IdempotencyHeader lets clients retry POST /recompute safely.
const IdempotencyHeader = "Idempotency-Key"

// TriggerDependencies defines the write-side operations.
type TriggerDependencies interface {
	dedupe.Deduper

	// RequestRecompute schedules a full recompute; service.ErrBusy on backpressure.
	RequestRecompute(ctx context.Context, reason string) error

	// ReloadHyperparams starts a hyperparameter load and reports whether it did.
	ReloadHyperparams(ctx context.Context) bool
}

// TriggerHandler handles recompute and reload requests.
type TriggerHandler struct {
	deps TriggerDependencies
}

// NewTriggerHandler creates a new trigger handler.
func NewTriggerHandler(deps TriggerDependencies) *TriggerHandler {
	return &TriggerHandler{deps: deps}
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type reloadResponse struct {
	Status  string `json:"status"`
	Started bool   `json:"started"`
}

// HandleRecompute handles POST /recompute requests. A repeated
// Idempotency-Key is acknowledged without scheduling another pass.
func (h *TriggerHandler) HandleRecompute(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_recompute"
	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	if key != "" && h.deps.SeenAndRecord(r.Context(), key) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}

	err := h.deps.RequestRecompute(r.Context(), model.ReasonManual)
	if err != nil && key != "" {
		// Nothing was scheduled, so the key stays usable for a retry.
		h.deps.Unrecord(r.Context(), key)
	}
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
	case errors.Is(err, service.ErrBusy):
		writeError(w, http.StatusTooManyRequests, "backpressure", fmt.Errorf("%s: %w", op, ErrBackpressure))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "not_ready", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", fmt.Errorf("%s: %w", op, err))
	}
}

// HandleReload handles POST /hyperparams/reload requests.
func (h *TriggerHandler) HandleReload(w http.ResponseWriter, r *http.Request) {
	started := h.deps.ReloadHyperparams(r.Context())
	writeJSON(w, http.StatusAccepted, reloadResponse{Status: "accepted", Started: started})
}
