// Package services – ExpirationService
//
// This file implements the expiration sweep: a stateless pass that closes
// requests whose relevant expiry date lies in the past and then compacts the
// queues of every item a closure touched. The pass is invoked by the
// in-process scheduler and by the manual trigger endpoint; it takes no
// parameters beyond "now" and operates over the full request population.
//
// Safety properties:
//   - Idempotent: a request already closed, or with no qualifying date, is
//     skipped; re-running a pass with no intervening writes changes nothing.
//   - Optimistic: each closure is conditioned on the row still holding the
//     status it was selected with, so a client write between selection and
//     update makes the row a skip, rediscovered on the next pass if still
//     applicable.
//   - Fault-isolated: a failure on one row is logged and the pass continues;
//     re-run safety makes that acceptable.
package services

import (
	"context"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-request-storage/internal/domain"
)

var (
	// sweepExpired counts requests closed by the sweep, by resulting status.
	sweepExpired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "request_sweep_expired_total",
			Help: "Total number of requests closed by the expiration sweep.",
		},
		[]string{"status"},
	)

	// sweepCompacted counts item queues renumbered after closures.
	sweepCompacted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "request_sweep_compacted_queues_total",
			Help: "Total number of item queues compacted by the expiration sweep.",
		},
	)

	// sweepDuration records full-pass durations.
	sweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "request_sweep_duration_seconds",
			Help:    "Duration of expiration sweep passes in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(sweepExpired, sweepCompacted, sweepDuration)
}

// SweepRepo defines the repository contract required by ExpirationService.
type SweepRepo interface {
	// ExpiredRequests selects rows in status whose dateColumn is set and
	// strictly before now.
	ExpiredRequests(ctx context.Context, db *gorm.DB, status domain.RequestStatus, dateColumn string, now time.Time) ([]domain.Request, error)

	// CloseRequest conditionally transitions one row out of its queue.
	CloseRequest(ctx context.Context, db *gorm.DB, id string, fromStatus, toStatus domain.RequestStatus, closedAt *time.Time, now time.Time, actorID string) (bool, error)

	// CompactQueue renumbers an item's queue contiguously from 1.
	CompactQueue(ctx context.Context, db *gorm.DB, itemID string, now time.Time, actorID string) error
}

// SweepResult summarizes one sweep pass.
type SweepResult struct {
	ClosedUnfilled      int
	ClosedPickupExpired int
	CompactedQueues     int
}

// ExpirationService runs expiration sweeps over the request store.
type ExpirationService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo supplies the sweep primitives.
	Repo SweepRepo
	// ActorID is stamped into row metadata for sweep writes.
	ActorID string
	// Now returns the current time; tests override it to freeze the pass.
	Now func() time.Time
}

// NewExpirationService constructs an ExpirationService writing on behalf of
// the given system actor.
func NewExpirationService(db *gorm.DB, r SweepRepo, actorID string) *ExpirationService {
	return &ExpirationService{DB: db, Repo: r, ActorID: actorID, Now: func() time.Time { return time.Now().UTC() }}
}

// Sweep performs one full expiration pass:
//
//  1. Open, not-yet-filled requests whose request expiration date has passed
//     are closed as unfilled and leave their queue.
//  2. Open, awaiting-pickup requests whose hold shelf expiration date has
//     passed are closed as pickup-expired; this transition stamps the
//     closure date (the not-yet-filled closure does not).
//  3. Every item queue that lost at least one member is compacted: survivors
//     are renumbered contiguously from 1 in their current position order.
//
// A request is never expired by the wrong date field, and a request with no
// qualifying date is never auto-expired.
func (s *ExpirationService) Sweep(ctx context.Context) (SweepResult, error) {
	started := time.Now()
	defer func() { sweepDuration.Observe(time.Since(started).Seconds()) }()

	now := s.Now()
	var res SweepResult
	touched := make(map[string]struct{})

	unfilled, err := s.Repo.ExpiredRequests(ctx, s.DB, domain.StatusOpenNotYetFilled, "request_expiration_date", now)
	if err != nil {
		return res, err
	}
	for i := range unfilled {
		closed, err := s.Repo.CloseRequest(ctx, s.DB, unfilled[i].ID,
			domain.StatusOpenNotYetFilled, domain.StatusClosedUnfilled, nil, now, s.ActorID)
		if err != nil {
			log.Error().Err(err).Str("request_id", unfilled[i].ID).Msg("sweep: close unfilled failed")
			continue
		}
		if closed {
			res.ClosedUnfilled++
			sweepExpired.WithLabelValues(string(domain.StatusClosedUnfilled)).Inc()
			touched[unfilled[i].ItemID] = struct{}{}
		}
	}

	pickup, err := s.Repo.ExpiredRequests(ctx, s.DB, domain.StatusOpenAwaitingPickup, "hold_shelf_expiration_date", now)
	if err != nil {
		return res, err
	}
	for i := range pickup {
		// Leaving the hold shelf into a closed state stamps the closure date.
		closed, err := s.Repo.CloseRequest(ctx, s.DB, pickup[i].ID,
			domain.StatusOpenAwaitingPickup, domain.StatusClosedPickupExpired, &now, now, s.ActorID)
		if err != nil {
			log.Error().Err(err).Str("request_id", pickup[i].ID).Msg("sweep: close pickup-expired failed")
			continue
		}
		if closed {
			res.ClosedPickupExpired++
			sweepExpired.WithLabelValues(string(domain.StatusClosedPickupExpired)).Inc()
			touched[pickup[i].ItemID] = struct{}{}
		}
	}

	// Deterministic compaction order keeps logs and tests stable.
	items := make([]string, 0, len(touched))
	for id := range touched {
		items = append(items, id)
	}
	sort.Strings(items)
	for _, itemID := range items {
		if err := s.Repo.CompactQueue(ctx, s.DB, itemID, now, s.ActorID); err != nil {
			log.Error().Err(err).Str("item_id", itemID).Msg("sweep: queue compaction failed")
			continue
		}
		res.CompactedQueues++
		sweepCompacted.Inc()
	}

	log.Info().
		Int("closed_unfilled", res.ClosedUnfilled).
		Int("closed_pickup_expired", res.ClosedPickupExpired).
		Int("compacted_queues", res.CompactedQueues).
		Msg("expiration sweep completed")
	return res, nil
}
