package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
)

// EventCounter counts the events of a pin in a time range
type EventCounter interface {
	CountEvents(ctx context.Context, pinID string, start, end int64) (int, error)
}

// EventHandler handles event queries
type EventHandler struct {
	counter EventCounter
}

// NewEventHandler creates a new event handler
func NewEventHandler(counter EventCounter) *EventHandler {
	return &EventHandler{counter: counter}
}

// CountResponse is the body of GET /getNumEvents
type CountResponse struct {
	Count int `json:"count"`
}

// GetNumEvents handles GET /getNumEvents?pinId=&start=&end=
func (h *EventHandler) GetNumEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	pinID := query.Get("pinId")
	if pinID == "" {
		respondError(w, "pinId is required", http.StatusBadRequest)
		return
	}

	start, err := strconv.ParseInt(query.Get("start"), 10, 64)
	if err != nil {
		respondError(w, "start must be a millisecond timestamp", http.StatusBadRequest)
		return
	}
	end, err := strconv.ParseInt(query.Get("end"), 10, 64)
	if err != nil {
		respondError(w, "end must be a millisecond timestamp", http.StatusBadRequest)
		return
	}

	count, err := h.counter.CountEvents(r.Context(), pinID, start, end)
	if err != nil {
		log.Error().
			Err(err).
			Str("pin_id", pinID).
			Msg("Failed to count events")
		respondError(w, "failed to count events", http.StatusNotFound)
		return
	}

	respondJSON(w, CountResponse{Count: count}, http.StatusOK)
}
