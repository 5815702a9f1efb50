package handlers

import (
	"context"
	"net/http"
	"time"

	"stanfood-backend/internal/services"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// Sweeper runs one expiry sweep
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (*services.SweepResult, error)
}

// SweepHandler exposes the expiry sweep over HTTP
type SweepHandler struct {
	sweeper Sweeper
}

// NewSweepHandler creates a new sweep handler
func NewSweepHandler(sweeper Sweeper) *SweepHandler {
	return &SweepHandler{sweeper: sweeper}
}

// CheckPinEvents handles GET|POST /checkPinEvents.
// It responds once every expired event has had its cleanup started; cleanup
// failures are logged and do not change the status code.
func (h *SweepHandler) CheckPinEvents(w http.ResponseWriter, r *http.Request) {
	result, err := h.sweeper.Sweep(r.Context(), time.Now())
	if err != nil {
		log.Error().
			Err(err).
			Str("request_id", chiMiddleware.GetReqID(r.Context())).
			Msg("Sweep failed")
		respondError(w, "sweep failed", http.StatusNotFound)
		return
	}

	respondJSON(w, result, http.StatusOK)
}
