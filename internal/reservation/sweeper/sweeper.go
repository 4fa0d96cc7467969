package sweeper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-reservation/internal/clock"
	"ms-reservation/internal/logger"
	"ms-reservation/internal/models"
	"ms-reservation/internal/reservation"
	"ms-reservation/internal/reservation/cache"
)

const (
	DefaultInterval  = time.Minute
	DefaultBatchSize = 500
)

type Ledger interface {
	ListExpired(ctx context.Context, now time.Time, limit int) ([]models.Hold, error)
	Transition(ctx context.Context, holdID string, buyerID int64, from []models.HoldStatus, to models.HoldStatus) (models.Hold, error)
}

// Result summarises one sweep pass.
type Result struct {
	Expired int
	Skipped int // already confirmed or cancelled by the time we got there
	Failed  int
	Events  int
}

// Sweeper expires RESERVED holds past their deadline so their seats are
// released even if nobody tries to confirm them.
type Sweeper struct {
	ledger    Ledger
	cache     cache.Cache
	notifier  reservation.Notifier
	clock     clock.Clock
	logger    *logger.Logger
	interval  time.Duration
	batchSize int
}

func New(ledger Ledger, c cache.Cache, notifier reservation.Notifier, clk clock.Clock, log *logger.Logger, interval time.Duration, batchSize int) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if notifier == nil {
		notifier = reservation.Notifiers{}
	}
	return &Sweeper{
		ledger:    ledger,
		cache:     c,
		notifier:  notifier,
		clock:     clk,
		logger:    log,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Start sweeps every interval until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.LogSweep(fmt.Sprintf("Expiry sweeper started (every %s)", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.LogSweep("Expiry sweeper stopped")
			return
		case <-ticker.C:
			res, err := s.SweepOnce(ctx)
			if err != nil {
				s.logger.Error("SWEEPER", fmt.Sprintf("sweep failed: %v", err))
				continue
			}
			if res.Expired > 0 || res.Failed > 0 {
				s.logger.LogSweep(fmt.Sprintf("expired %d holds across %d events (%d skipped, %d failed)",
					res.Expired, res.Events, res.Skipped, res.Failed))
			}
		}
	}
}

type group struct {
	eventID int64
	tier    models.Tier
	buyerID int64
}

// SweepOnce expires every hold whose deadline has passed. A failure on one
// hold is logged and counted; the pass moves on.
func (s *Sweeper) SweepOnce(ctx context.Context) (Result, error) {
	var res Result
	now := s.clock.Now()
	touched := map[int64]struct{}{}
	expired := map[group][]models.Hold{}

	for {
		batch, err := s.ledger.ListExpired(ctx, now, s.batchSize)
		if err != nil {
			s.finish(ctx, touched, expired, now)
			return res, err
		}

		failedInBatch := 0
		for _, hold := range batch {
			if ctx.Err() != nil {
				s.finish(ctx, touched, expired, now)
				return res, ctx.Err()
			}

			updated, err := s.ledger.Transition(ctx, hold.ID, hold.BuyerID, []models.HoldStatus{models.HoldStatusReserved}, models.HoldStatusExpired)
			switch {
			case err == nil:
				res.Expired++
				touched[hold.EventID] = struct{}{}
				g := group{eventID: hold.EventID, tier: hold.Tier, buyerID: hold.BuyerID}
				expired[g] = append(expired[g], updated)
			case errors.Is(err, models.ErrHoldNotFound):
				res.Skipped++
			default:
				res.Failed++
				failedInBatch++
				s.logger.Error("SWEEPER", fmt.Sprintf("failed to expire hold %s: %v", hold.ID, err))
			}
		}

		// failed holds stay RESERVED and would be listed again
		if len(batch) < s.batchSize || failedInBatch > 0 {
			break
		}
	}

	s.finish(ctx, touched, expired, now)
	res.Events = len(touched)
	return res, nil
}

func (s *Sweeper) finish(ctx context.Context, touched map[int64]struct{}, expired map[group][]models.Hold, now time.Time) {
	for eventID := range touched {
		if err := s.cache.Invalidate(ctx, eventID); err != nil {
			s.logger.Warn("CACHE", fmt.Sprintf("invalidate failed for event %d: %v", eventID, err))
		}
	}
	for _, holds := range expired {
		if err := s.notifier.NotifyHoldEvent(ctx, models.NewHoldEvent(models.HoldEventExpired, holds, now)); err != nil {
			s.logger.Warn("SWEEPER", fmt.Sprintf("hold.expired notification failed: %v", err))
		}
	}
}
