package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stanfood-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SweepService removes expired events together with their food items,
// food images and their share of the owning pin's event counter
type SweepService struct {
	events EventStore
	food   FoodStore
	pins   PinCounter
	blobs  BlobStore

	// cascades tracks cleanups of every sweep so shutdown can wait for them
	cascades sync.WaitGroup
}

// NewSweepService creates a new sweep service
func NewSweepService(events EventStore, food FoodStore, pins PinCounter, blobs BlobStore) *SweepService {
	return &SweepService{
		events: events,
		food:   food,
		pins:   pins,
		blobs:  blobs,
	}
}

// SweepResult summarizes one sweep. The cascades it started keep running
// after Sweep returns; Wait blocks until they have all finished.
type SweepResult struct {
	SweepID string `json:"sweep_id"`
	Scanned int    `json:"scanned"`
	Expired int    `json:"expired"`
	Skipped int    `json:"skipped"`

	wg sync.WaitGroup
}

// Wait blocks until every cascade started by the sweep has finished
func (r *SweepResult) Wait() {
	r.wg.Wait()
}

// Sweep scans a snapshot of all events and starts the cleanup of every event
// that ended before now. It returns once the snapshot has been scanned; the
// per-event cleanups run detached and their failures are only logged.
func (s *SweepService) Sweep(ctx context.Context, now time.Time) (*SweepResult, error) {
	result := &SweepResult{SweepID: uuid.New().String()}
	logger := log.With().Str("sweep_id", result.SweepID).Logger()

	events, err := s.events.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read events snapshot: %w", err)
	}

	// Cascades outlive the caller's request
	detached := context.WithoutCancel(ctx)
	nowMillis := now.UnixMilli()

	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("sweep interrupted after %d events: %w", result.Scanned, err)
		}
		result.Scanned++

		if err := s.checkEvent(detached, result, event, nowMillis); err != nil {
			result.Skipped++
			logger.Warn().Err(err).Str("event_id", event.ID).Msg("Skipping malformed event")
		}
	}

	logger.Info().
		Int("scanned", result.Scanned).
		Int("expired", result.Expired).
		Int("skipped", result.Skipped).
		Msg("Sweep scanned events")

	return result, nil
}

// checkEvent is the per-record guard: it never lets one record abort the sweep
func (s *SweepService) checkEvent(ctx context.Context, result *SweepResult, event *models.Event, nowMillis int64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while checking event: %v", r)
		}
	}()

	expired, ok := event.IsExpired(nowMillis)
	if !ok {
		return fmt.Errorf("event is missing time_start or duration")
	}
	if !expired {
		return nil
	}
	if event.PinID == "" {
		return fmt.Errorf("expired event has no pin_id")
	}

	result.Expired++
	s.detach(result, func() { s.removeFood(ctx, result.SweepID, event.ID) })
	s.detach(result, func() { s.releasePin(ctx, result.SweepID, event) })
	return nil
}

// detach runs fn in its own goroutine, tracked by both the sweep result and
// the service
func (s *SweepService) detach(result *SweepResult, fn func()) {
	result.wg.Add(1)
	s.cascades.Add(1)
	go func() {
		defer s.cascades.Done()
		defer result.wg.Done()
		fn()
	}()
}

// Drain waits for the cleanups of every sweep started so far. It returns
// ctx's error if they are still running when ctx is done.
func (s *SweepService) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.cascades.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("sweep cleanups still running: %w", ctx.Err())
	}
}

// removeFood deletes every food item of an expired event and its image
func (s *SweepService) removeFood(ctx context.Context, sweepID, eventID string) {
	logger := log.With().Str("sweep_id", sweepID).Str("event_id", eventID).Logger()

	items, err := s.food.ListByEventID(ctx, eventID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to look up food for expired event")
		return
	}

	for _, item := range items {
		if item.ImagePath != "" {
			if err := s.blobs.Delete(ctx, item.ImagePath); err != nil {
				logger.Error().Err(err).
					Str("food_id", item.ID).
					Str("image_path", item.ImagePath).
					Msg("Failed to remove food image")
			} else {
				logger.Info().
					Str("food_id", item.ID).
					Str("image_path", item.ImagePath).
					Msg("Removed food image from storage")
			}
		}

		if err := s.food.DeleteFood(ctx, item.ID); err != nil {
			logger.Error().Err(err).Str("food_id", item.ID).Msg("Failed to remove food item")
			continue
		}
		logger.Info().Str("food_id", item.ID).Msg("Removed food item for expired event")
	}
}

// releasePin deletes the event and decrements its pin's counter in one
// transaction. The delete is re-issued whenever the transaction retries.
func (s *SweepService) releasePin(ctx context.Context, sweepID string, event *models.Event) {
	logger := log.With().
		Str("sweep_id", sweepID).
		Str("event_id", event.ID).
		Str("pin_id", event.PinID).
		Logger()

	if err := s.pins.RemoveEvent(ctx, event.PinID, event.ID, decrementCount); err != nil {
		logger.Error().Err(err).Msg("Failed to remove expired event")
		return
	}
	logger.Info().Msg("Expired event removed")
}

// decrementCount lowers a present, non-zero counter by one and leaves
// anything else untouched
func decrementCount(current *int64) *int64 {
	if current == nil || *current == 0 {
		return current
	}
	next := *current - 1
	return &next
}
