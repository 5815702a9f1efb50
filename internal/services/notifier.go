package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stanfood-backend/internal/models"
	"stanfood-backend/internal/push"
	"stanfood-backend/internal/timewindow"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// NotificationTitle is the fixed title of every new-event notification
const NotificationTitle = "Free food added in your area!"

// ErrMalformedEvent is returned for events without time_start or duration
var ErrMalformedEvent = errors.New("event is missing time_start or duration")

// NotificationService selects users whose preferred time window overlaps a
// newly created event and pushes a notification to their devices
type NotificationService struct {
	events EventStore
	users  UserStore
	sender Sender
	loc    *time.Location
}

// NewNotificationService creates a new notification service.
// Event times are converted to loc before being compared with user windows.
func NewNotificationService(events EventStore, users UserStore, sender Sender, loc *time.Location) *NotificationService {
	return &NotificationService{
		events: events,
		users:  users,
		sender: sender,
		loc:    loc,
	}
}

// NotifyResult summarizes the recipients and delivery failures of one event
type NotifyResult struct {
	EventID    string   `json:"event_id"`
	Recipients []string `json:"recipients"`
	Failures   int      `json:"failures"`
	// StaleTokens were rejected as invalid or unregistered
	StaleTokens []string `json:"stale_tokens"`
}

// NotifyByID loads an event and runs OnEventCreated for it
func (s *NotificationService) NotifyByID(ctx context.Context, eventID string) (*NotifyResult, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return s.OnEventCreated(ctx, event, eventID)
}

// OnEventCreated notifies every push-enabled user whose time window contains
// the event's start or end clock time.
//
// Only the endpoints are tested: an event that starts before and ends after a
// user's window does not match that user.
func (s *NotificationService) OnEventCreated(ctx context.Context, event *models.Event, eventID string) (*NotifyResult, error) {
	end, ok := event.EndTime()
	if !ok {
		return nil, fmt.Errorf("event %s: %w", eventID, ErrMalformedEvent)
	}
	eventStart := timewindow.FromTime(time.UnixMilli(*event.TimeStart).In(s.loc))
	eventEnd := timewindow.FromTime(time.UnixMilli(end).In(s.loc))

	logger := log.With().Str("event_id", eventID).Logger()
	logger.Info().
		Str("pin_id", event.PinID).
		Stringer("start", eventStart).
		Stringer("end", eventEnd).
		Msg("New event added")

	var (
		users    map[string]*models.User
		settings []*models.UserSettings
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		users, err = s.users.ListUsers(gctx)
		return err
	})
	g.Go(func() (err error) {
		settings, err = s.users.ListPushEnabledSettings(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load recipients: %w", err)
	}

	result := &NotifyResult{EventID: eventID}
	var tokens []string

	for _, st := range settings {
		windowStart, err := timewindow.Parse(st.TimeWindowStart)
		if err != nil {
			logger.Warn().Err(err).Str("user_id", st.UserID).Msg("Skipping malformed time window")
			continue
		}
		windowEnd, err := timewindow.Parse(st.TimeWindowEnd)
		if err != nil {
			logger.Warn().Err(err).Str("user_id", st.UserID).Msg("Skipping malformed time window")
			continue
		}

		if !timewindow.IsBetween(eventStart, windowStart, windowEnd) &&
			!timewindow.IsBetween(eventEnd, windowStart, windowEnd) {
			continue
		}

		user, ok := users[st.UserID]
		if !ok || user.InstanceID == "" {
			logger.Debug().Str("user_id", st.UserID).Msg("Matched user has no device token")
			continue
		}
		tokens = append(tokens, user.InstanceID)
		result.Recipients = append(result.Recipients, st.UserID)
	}

	if len(tokens) == 0 {
		logger.Info().Msg("No users to notify")
		return result, nil
	}
	logger.Info().Int("tokens", len(tokens)).Msg("Sending new event notification")

	results, err := s.sender.SendBatch(ctx, tokens, push.Payload{
		Title: NotificationTitle,
		Body:  eventID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send notifications: %w", err)
	}

	for _, r := range results {
		if !r.Failed() {
			continue
		}
		result.Failures++
		logger.Error().
			Str("token", r.Token).
			Str("error_code", r.ErrorCode).
			Str("reason", r.Reason).
			Msg("Failure sending notification")

		if r.IsStaleToken() {
			// TODO: clear users.instance_id for stale tokens once a pruning policy is agreed
			result.StaleTokens = append(result.StaleTokens, r.Token)
		}
	}

	return result, nil
}
