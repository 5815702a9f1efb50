// Package listener consumes Postgres notifications for newly created events.
//
// A trigger on the events table runs pg_notify('event_created', NEW.id). The
// listener holds its own connection outside the pool, since a LISTEN session
// is bound to one backend, and hands each event id to the notifier.
package listener

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"stanfood-backend/internal/services"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

const (
	// Channel is the notification channel written by the events trigger
	Channel = "event_created"

	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// Notifier sends the new-event notification for a stored event
type Notifier interface {
	NotifyByID(ctx context.Context, eventID string) (*services.NotifyResult, error)
}

// Listener turns event_created notifications into push notifications
type Listener struct {
	dsn      string
	notifier Notifier
	wg       sync.WaitGroup
}

// New creates a listener that connects with dsn
func New(dsn string, notifier Notifier) *Listener {
	return &Listener{dsn: dsn, notifier: notifier}
}

// Run listens until ctx is cancelled, reconnecting with exponential backoff
// when the connection drops. In-flight notifications are awaited on return.
func (l *Listener) Run(ctx context.Context) {
	defer l.wg.Wait()
	backoff := reconnectBackoff

	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			log.Info().Msg("Event listener stopped")
			return
		}

		log.Error().
			Err(err).
			Dur("backoff", backoff).
			Msg("Event listener disconnected, reconnecting")

		select {
		case <-time.After(backoff):
			backoff = nextBackoff(backoff)
		case <-ctx.Done():
			return
		}
	}
}

// listen runs one LISTEN session until the connection drops or ctx ends
func (l *Listener) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		return fmt.Errorf("LISTEN %s: %w", Channel, err)
	}
	log.Info().Str("channel", Channel).Msg("Event listener connected")

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		l.dispatch(ctx, notification.Payload)
	}
}

// dispatch notifies users about one event without blocking the listen loop
func (l *Listener) dispatch(ctx context.Context, payload string) {
	eventID := strings.TrimSpace(payload)
	if eventID == "" {
		log.Warn().Msg("Ignoring event notification without an event id")
		return
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if _, err := l.notifier.NotifyByID(context.WithoutCancel(ctx), eventID); err != nil {
			log.Error().Err(err).Str("event_id", eventID).Msg("Failed to notify users about new event")
		}
	}()
}

func nextBackoff(current time.Duration) time.Duration {
	return min(current*2, maxReconnect)
}
