package handlers

import (
	"context"
	"errors"
	"net/http"

	"stanfood-backend/internal/repository"
	"stanfood-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// Notifier sends the new-event notification for a stored event
type Notifier interface {
	NotifyByID(ctx context.Context, eventID string) (*services.NotifyResult, error)
}

// NotificationHandler lets operators re-run the new-event notification
type NotificationHandler struct {
	notifier Notifier
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notifier Notifier) *NotificationHandler {
	return &NotificationHandler{notifier: notifier}
}

// NotifyEvent handles POST /api/v1/events/{event_id}/notifications
func (h *NotificationHandler) NotifyEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "event_id")
	if eventID == "" {
		respondError(w, "event_id is required", http.StatusBadRequest)
		return
	}

	result, err := h.notifier.NotifyByID(r.Context(), eventID)
	if err != nil {
		log.Error().
			Err(err).
			Str("event_id", eventID).
			Msg("Failed to send event notification")

		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, "event not found", http.StatusNotFound)
			return
		}
		respondError(w, "failed to send notifications", http.StatusInternalServerError)
		return
	}

	log.Info().
		Str("event_id", eventID).
		Int("recipients", len(result.Recipients)).
		Int("failures", result.Failures).
		Msg("Event notification sent")

	respondJSON(w, result, http.StatusOK)
}
