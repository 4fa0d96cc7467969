package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-reservation/internal/clock"
	"ms-reservation/internal/logger"
	"ms-reservation/internal/models"
	"ms-reservation/internal/reservation/cache"
)

const DefaultCancellationWindow = 24 * time.Hour

type Catalog interface {
	GetEvent(ctx context.Context, id int64) (*models.Event, error)
}

type Ledger interface {
	CountCommitted(ctx context.Context, eventID int64, tier models.Tier) (int, error)
	CreateHold(ctx context.Context, event *models.Event, tier models.Tier, buyerID int64, quantity int, unitPrice float64) ([]models.Hold, error)
	Transition(ctx context.Context, holdID string, buyerID int64, from []models.HoldStatus, to models.HoldStatus) (models.Hold, error)
	GetHold(ctx context.Context, holdID string, buyerID int64) (models.Hold, error)
	ListByBuyer(ctx context.Context, buyerID int64) ([]models.Hold, error)
}

// Reservation is the result of a successful Reserve.
type Reservation struct {
	Holds     []models.Hold `json:"tickets"`
	UnitPrice float64       `json:"unit_price"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// Engine runs the hold state machine on top of the ledger and keeps the
// availability cache coherent with it.
type Engine struct {
	catalog  Catalog
	ledger   Ledger
	cache    cache.Cache
	clock    clock.Clock
	notifier Notifier
	logger   *logger.Logger

	cancellationWindow time.Duration
}

type Option func(*Engine)

// WithCancellationWindow sets how long before an event cancellation closes.
func WithCancellationWindow(window time.Duration) Option {
	return func(e *Engine) {
		if window >= 0 {
			e.cancellationWindow = window
		}
	}
}

func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

func NewEngine(catalog Catalog, ledger Ledger, c cache.Cache, clk clock.Clock, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		catalog:            catalog,
		ledger:             ledger,
		cache:              c,
		clock:              clk,
		notifier:           Notifiers{},
		logger:             log,
		cancellationWindow: DefaultCancellationWindow,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Price returns the per-seat amount for tier at the event.
func (e *Engine) Price(event *models.Event, tier models.Tier) float64 {
	return event.Price(tier)
}

// Reserve holds quantity seats of tier for the buyer. The holds share one
// deadline, after which they stop counting against capacity.
func (e *Engine) Reserve(ctx context.Context, eventID, buyerID int64, tier models.Tier, quantity int) (Reservation, error) {
	if quantity < 1 {
		return Reservation{}, fmt.Errorf("%w: quantity must be at least 1", models.ErrInvalidArgument)
	}
	if !tier.Valid() {
		return Reservation{}, fmt.Errorf("%w: unknown seat tier %q", models.ErrInvalidArgument, tier)
	}

	event, err := e.catalog.GetEvent(ctx, eventID)
	if err != nil {
		return Reservation{}, err
	}
	if event.HasOccurred(e.clock.Now()) {
		return Reservation{}, models.ErrEventAlreadyOccurred
	}

	available, err := e.countAvailable(ctx, event, tier)
	if err != nil {
		return Reservation{}, err
	}
	if available < quantity {
		return Reservation{}, fmt.Errorf("%w: only %d %s tickets left", models.ErrInsufficientAvailability, available, tier)
	}

	holds, err := e.ledger.CreateHold(ctx, event, tier, buyerID, quantity, e.Price(event, tier))
	if err != nil {
		if errors.Is(err, models.ErrCapacityExceeded) {
			return Reservation{}, err
		}
		return Reservation{}, fmt.Errorf("create holds for event %d: %w", eventID, err)
	}

	e.invalidate(ctx, eventID)
	e.notify(ctx, models.HoldEventReserved, holds)

	res := Reservation{Holds: holds, UnitPrice: holds[0].Amount}
	if holds[0].ExpiresAt != nil {
		res.ExpiresAt = *holds[0].ExpiresAt
	}
	e.logger.LogHold("RESERVE", fmt.Sprintf("event %d", eventID),
		fmt.Sprintf("buyer %d holds %d x %s until %s", buyerID, quantity, tier, res.ExpiresAt.Format(time.RFC3339)))
	return res, nil
}

// Confirm turns a live hold into a sale. A hold past its deadline is marked
// EXPIRED instead and the caller gets models.ErrReservationExpired.
func (e *Engine) Confirm(ctx context.Context, holdID string, buyerID int64) (models.Hold, error) {
	hold, err := e.ownedHold(ctx, holdID, buyerID)
	if err != nil {
		return models.Hold{}, err
	}
	switch hold.Status {
	case models.HoldStatusReserved:
	case models.HoldStatusExpired:
		return models.Hold{}, models.ErrReservationExpired
	default:
		return models.Hold{}, models.ErrNotFoundOrUnauthorized
	}

	if hold.ExpiredAt(e.clock.Now()) {
		expired, err := e.ledger.Transition(ctx, holdID, buyerID, []models.HoldStatus{models.HoldStatusReserved}, models.HoldStatusExpired)
		switch {
		case err == nil:
			e.invalidate(ctx, hold.EventID)
			e.notify(ctx, models.HoldEventExpired, []models.Hold{expired})
			e.logger.LogHold("EXPIRE", holdID, "confirmed after deadline")
		case !errors.Is(err, models.ErrHoldNotFound):
			e.logger.Error("HOLD", fmt.Sprintf("failed to expire hold %s: %v", holdID, err))
		}
		return models.Hold{}, models.ErrReservationExpired
	}

	confirmed, err := e.ledger.Transition(ctx, holdID, buyerID, []models.HoldStatus{models.HoldStatusReserved}, models.HoldStatusConfirmed)
	if errors.Is(err, models.ErrHoldNotFound) {
		// lost the race; report what the winner did
		current, rerr := e.ledger.GetHold(ctx, holdID, buyerID)
		if rerr == nil && current.Status == models.HoldStatusExpired {
			return models.Hold{}, models.ErrReservationExpired
		}
		return models.Hold{}, models.ErrNotFoundOrUnauthorized
	}
	if err != nil {
		return models.Hold{}, fmt.Errorf("confirm hold %s: %w", holdID, err)
	}

	e.invalidate(ctx, confirmed.EventID)
	e.notify(ctx, models.HoldEventConfirmed, []models.Hold{confirmed})
	e.logger.LogHold("CONFIRM", holdID, fmt.Sprintf("buyer %d paid %.2f", buyerID, confirmed.Amount))
	return confirmed, nil
}

// Cancel releases a reserved or confirmed seat, unless the event starts
// within the cancellation window.
func (e *Engine) Cancel(ctx context.Context, holdID string, buyerID int64) (models.Hold, error) {
	hold, err := e.ownedHold(ctx, holdID, buyerID)
	if err != nil {
		return models.Hold{}, err
	}
	if hold.Status != models.HoldStatusReserved && hold.Status != models.HoldStatusConfirmed {
		return models.Hold{}, models.ErrNotFoundOrUnauthorized
	}

	event, err := e.catalog.GetEvent(ctx, hold.EventID)
	if err != nil {
		return models.Hold{}, err
	}
	if !event.CancellationOpen(e.clock.Now(), e.cancellationWindow) {
		return models.Hold{}, models.ErrCancellationWindowClosed
	}

	cancelled, err := e.ledger.Transition(ctx, holdID, buyerID, models.CommittedStatuses, models.HoldStatusCancelled)
	if errors.Is(err, models.ErrHoldNotFound) {
		return models.Hold{}, models.ErrNotFoundOrUnauthorized
	}
	if err != nil {
		return models.Hold{}, fmt.Errorf("cancel hold %s: %w", holdID, err)
	}

	e.invalidate(ctx, cancelled.EventID)
	e.notify(ctx, models.HoldEventCancelled, []models.Hold{cancelled})
	e.logger.LogHold("CANCEL", holdID, fmt.Sprintf("buyer %d released a %s seat", buyerID, cancelled.Tier))
	return cancelled, nil
}

// Availability answers from the cache when it holds a fresh value, otherwise
// from the ledger, refreshing the cache.
func (e *Engine) Availability(ctx context.Context, eventID int64, tier models.Tier) (models.Availability, error) {
	if !tier.Valid() {
		return models.Availability{}, fmt.Errorf("%w: unknown seat tier %q", models.ErrInvalidArgument, tier)
	}

	if available, ok := e.cache.Get(ctx, eventID, tier); ok {
		return models.Availability{EventID: eventID, Tier: tier, Available: available, Cached: true}, nil
	}

	event, err := e.catalog.GetEvent(ctx, eventID)
	if err != nil {
		return models.Availability{}, err
	}
	available, err := e.countAvailable(ctx, event, tier)
	if err != nil {
		return models.Availability{}, err
	}
	e.cache.Put(ctx, eventID, tier, available)
	return models.Availability{EventID: eventID, Tier: tier, Available: available}, nil
}

// Ticket returns a confirmed hold owned by the buyer.
func (e *Engine) Ticket(ctx context.Context, holdID string, buyerID int64) (models.Hold, error) {
	hold, err := e.ownedHold(ctx, holdID, buyerID)
	if err != nil {
		return models.Hold{}, err
	}
	if hold.Status != models.HoldStatusConfirmed {
		return models.Hold{}, models.ErrNotFoundOrUnauthorized
	}
	return hold, nil
}

func (e *Engine) HoldsForBuyer(ctx context.Context, buyerID int64) ([]models.Hold, error) {
	holds, err := e.ledger.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("list holds: %w", err)
	}
	return holds, nil
}

func (e *Engine) ownedHold(ctx context.Context, holdID string, buyerID int64) (models.Hold, error) {
	hold, err := e.ledger.GetHold(ctx, holdID, buyerID)
	if errors.Is(err, models.ErrHoldNotFound) {
		return models.Hold{}, models.ErrNotFoundOrUnauthorized
	}
	if err != nil {
		return models.Hold{}, fmt.Errorf("load hold %s: %w", holdID, err)
	}
	return hold, nil
}

func (e *Engine) countAvailable(ctx context.Context, event *models.Event, tier models.Tier) (int, error) {
	committedAll, err := e.ledger.CountCommitted(ctx, event.ID, "")
	if err != nil {
		return 0, err
	}
	committedTier := committedAll
	if _, limited := event.TierCapacities[tier]; limited {
		if committedTier, err = e.ledger.CountCommitted(ctx, event.ID, tier); err != nil {
			return 0, err
		}
	}
	return event.Available(tier, committedAll, committedTier), nil
}

func (e *Engine) invalidate(ctx context.Context, eventID int64) {
	if err := e.cache.Invalidate(ctx, eventID); err != nil {
		e.logger.Warn("CACHE", fmt.Sprintf("invalidate failed for event %d: %v", eventID, err))
	}
}

func (e *Engine) notify(ctx context.Context, typ models.HoldEventType, holds []models.Hold) {
	if err := e.notifier.NotifyHoldEvent(ctx, models.NewHoldEvent(typ, holds, e.clock.Now())); err != nil {
		e.logger.Warn("HOLD", fmt.Sprintf("%s notification failed: %v", typ, err))
	}
}
