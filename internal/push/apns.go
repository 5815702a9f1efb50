// Package push delivers batch notifications to device tokens over APNs.
package push

import (
	"context"
	"fmt"

	"stanfood-backend/internal/config"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
	"golang.org/x/sync/errgroup"
)

// Per-token error codes reported in Result.ErrorCode
const (
	ErrorCodeInvalidToken  = "messaging/invalid-registration-token"
	ErrorCodeNotRegistered = "messaging/registration-token-not-registered"
	ErrorCodeInternal      = "messaging/internal-error"
)

// Payload is the notification content sent to every token in a batch
type Payload struct {
	Title string
	Body  string
}

// Result is the delivery outcome for one token. ErrorCode is empty on success.
type Result struct {
	Token     string
	ErrorCode string
	Reason    string
}

// Failed reports whether delivery to the token failed
func (r Result) Failed() bool {
	return r.ErrorCode != ""
}

// IsStaleToken reports whether the token is permanently invalid
func (r Result) IsStaleToken() bool {
	return r.ErrorCode == ErrorCodeInvalidToken || r.ErrorCode == ErrorCodeNotRegistered
}

// pusher is the subset of *apns2.Client used here
type pusher interface {
	PushWithContext(ctx apns2.Context, n *apns2.Notification) (*apns2.Response, error)
}

// APNsSender sends notifications through Apple Push Notification service
type APNsSender struct {
	client  pusher
	topic   string
	workers int
}

// NewAPNsSender creates a token-authenticated APNs client from a .p8 key file
func NewAPNsSender(cfg config.APNsConfig) (*APNsSender, error) {
	authKey, err := token.AuthKeyFromFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs auth key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	})
	if cfg.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	log.Info().
		Str("topic", cfg.Topic).
		Bool("production", cfg.Production).
		Msg("APNs sender initialized")

	return &APNsSender{client: client, topic: cfg.Topic, workers: cfg.Workers}, nil
}

// SendBatch delivers p to every token and returns one Result per token, in
// token order. Per-token failures are reported in the results; the returned
// error is non-nil only when the batch could not be attempted at all.
func (s *APNsSender) SendBatch(ctx context.Context, tokens []string, p Payload) ([]Result, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("no tokens to send to")
	}

	body := payload.NewPayload().
		AlertTitle(p.Title).
		AlertBody(p.Body).
		Custom("eventId", p.Body)

	results := make([]Result, len(tokens))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.workers, 1))

	for i, tok := range tokens {
		g.Go(func() error {
			res, err := s.client.PushWithContext(gctx, &apns2.Notification{
				DeviceToken: tok,
				Topic:       s.topic,
				Payload:     body,
			})
			results[i] = toResult(tok, res, err)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("batch send interrupted: %w", err)
	}
	return results, nil
}

func toResult(tok string, res *apns2.Response, err error) Result {
	if err != nil {
		return Result{Token: tok, ErrorCode: ErrorCodeInternal, Reason: err.Error()}
	}
	if res.Sent() {
		return Result{Token: tok}
	}

	switch res.Reason {
	case apns2.ReasonBadDeviceToken:
		return Result{Token: tok, ErrorCode: ErrorCodeInvalidToken, Reason: res.Reason}
	case apns2.ReasonUnregistered:
		return Result{Token: tok, ErrorCode: ErrorCodeNotRegistered, Reason: res.Reason}
	default:
		return Result{Token: tok, ErrorCode: ErrorCodeInternal, Reason: res.Reason}
	}
}

// LogSender is used when APNs is not configured; it records every token as delivered
type LogSender struct{}

// SendBatch logs the batch and reports success for each token
func (LogSender) SendBatch(ctx context.Context, tokens []string, p Payload) ([]Result, error) {
	log.Info().
		Int("tokens", len(tokens)).
		Str("title", p.Title).
		Str("body", p.Body).
		Msg("Push send (APNs disabled)")

	results := make([]Result, len(tokens))
	for i, tok := range tokens {
		results[i] = Result{Token: tok}
	}
	return results, nil
}
