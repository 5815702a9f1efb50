package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// maxTransactionAttempts bounds optimistic retries of a counter transform
const maxTransactionAttempts = 25

// Postgres error codes that mean "conflicting concurrent write, try again"
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// txStarter is the subset of *pgxpool.Pool used to open transactions
type txStarter interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// PinRepository handles database operations for pins
type PinRepository struct {
	db txStarter
}

// NewPinRepository creates a new pin repository
func NewPinRepository(db *pgxpool.Pool) *PinRepository {
	return &PinRepository{db: db}
}

// RemoveEvent deletes an event and replaces its pin's num_events with
// fn(current), both on one transaction and one connection.
//
// The transaction is retried after a serialization conflict, so fn may be
// called more than once and the delete is re-issued each time. current is nil
// when the column is NULL or the pin does not exist; an absent pin is never
// created, but the event is still deleted.
func (r *PinRepository) RemoveEvent(ctx context.Context, pinID, eventID string, fn func(current *int64) *int64) error {
	var lastErr error

	for attempt := 1; attempt <= maxTransactionAttempts; attempt++ {
		err := pgx.BeginTxFunc(ctx, r.db, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
			var current *int64
			err := tx.QueryRow(ctx,
				`SELECT num_events FROM pins WHERE id = $1 FOR UPDATE`, pinID,
			).Scan(&current)
			pinExists := true
			if errors.Is(err, pgx.ErrNoRows) {
				pinExists = false
			} else if err != nil {
				return err
			}

			if _, err := tx.Exec(ctx, deleteEventQuery, eventID); err != nil {
				return fmt.Errorf("failed to delete event: %w", err)
			}

			next := fn(current)
			if !pinExists || sameCount(current, next) {
				return nil
			}

			_, err = tx.Exec(ctx, `UPDATE pins SET num_events = $2 WHERE id = $1`, pinID, next)
			return err
		})
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return fmt.Errorf("failed to update pin counter: %w", err)
		}

		lastErr = err
		log.Debug().
			Str("pin_id", pinID).
			Str("event_id", eventID).
			Int("attempt", attempt).
			Err(err).
			Msg("Pin counter transaction conflicted, retrying")
	}

	return fmt.Errorf("pin counter transaction aborted after %d attempts: %w", maxTransactionAttempts, lastErr)
}

// IsRetryable reports whether err is a transient write conflict
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
}

func sameCount(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
