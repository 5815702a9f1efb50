// Package scheduler runs the expiry sweep on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"stanfood-backend/internal/services"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Sweeper runs one expiry sweep
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (*services.SweepResult, error)
}

// Scheduler triggers a sweep on every tick of a standard 5-field cron expression.
// A tick that arrives while the previous sweep is still scanning is skipped.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	now     func() time.Time
}

// New parses schedule and registers the sweep job
func New(schedule string, sweeper Sweeper) (*Scheduler, error) {
	logger := cronLogger{log.With().Str("component", "scheduler").Logger()}
	s := &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(logger),
			cron.SkipIfStillRunning(logger),
		), cron.WithLogger(logger)),
		sweeper: sweeper,
		now:     time.Now,
	}

	if _, err := s.cron.AddFunc(schedule, s.runOnce); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Run starts the schedule and blocks until ctx is cancelled, then waits for
// a running sweep to finish scanning
func (s *Scheduler) Run(ctx context.Context) {
	s.cron.Start()
	log.Info().Msg("Sweep scheduler started")

	<-ctx.Done()
	<-s.cron.Stop().Done()
	log.Info().Msg("Sweep scheduler stopped")
}

func (s *Scheduler) runOnce() {
	result, err := s.sweeper.Sweep(context.Background(), s.now())
	if err != nil {
		log.Error().Err(err).Msg("Scheduled sweep failed")
		return
	}
	log.Debug().
		Str("sweep_id", result.SweepID).
		Int("expired", result.Expired).
		Msg("Scheduled sweep finished scanning")
}

// cronLogger adapts zerolog to cron.Logger
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
