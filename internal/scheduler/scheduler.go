// Package scheduler runs the expiration sweep on a recurring cron schedule.
// It is a thin shell around robfig/cron: the sweep itself is stateless and
// idempotent, so a missed or overlapping tick is harmless.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-request-storage/internal/services"
)

// Sweeper is the single operation the scheduler drives.
type Sweeper interface {
	Sweep(ctx context.Context) (services.SweepResult, error)
}

// sweepTimeout bounds one pass; a timed-out pass is simply retried whole on
// the next tick.
const sweepTimeout = 5 * time.Minute

// Scheduler periodically invokes the expiration sweep.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	spec    string
}

// New constructs a Scheduler that runs sweeper on the given standard 5-field
// cron expression.
func New(spec string, sweeper Sweeper) *Scheduler {
	return &Scheduler{cron: cron.New(), sweeper: sweeper, spec: spec}
}

// Start registers the sweep job and starts the cron loop. Returns an error
// when the cron expression does not parse.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		if _, err := s.sweeper.Sweep(ctx); err != nil {
			log.Error().Err(err).Msg("scheduled expiration sweep failed")
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	log.Info().Str("cron", s.spec).Msg("expiration sweep scheduled")
	return nil
}

// Stop halts the cron loop and waits for a running sweep to finish, bounded
// by the caller's context.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
