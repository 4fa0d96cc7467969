package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"ms-reservation/internal/clock"
	"ms-reservation/internal/models"
)

const DefaultHoldTTL = 15 * time.Minute

// DB is the reservation ledger: the source of truth for every hold.
type DB struct {
	Bun     *bun.DB
	Clock   clock.Clock
	HoldTTL time.Duration

	locks *eventLocks
}

type Option func(*DB)

// WithHoldTTL overrides how long a RESERVED hold lives before it expires.
func WithHoldTTL(ttl time.Duration) Option {
	return func(d *DB) {
		if ttl > 0 {
			d.HoldTTL = ttl
		}
	}
}

func New(bunDB *bun.DB, clk clock.Clock, opts ...Option) *DB {
	d := &DB{
		Bun:     bunDB,
		Clock:   clk,
		HoldTTL: DefaultHoldTTL,
		locks:   newEventLocks(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *DB) now() time.Time {
	return d.Clock.Now().UTC().Truncate(time.Microsecond)
}

// CountCommitted returns how many seats of the event are RESERVED or
// CONFIRMED. An empty tier counts across all tiers.
func (d *DB) CountCommitted(ctx context.Context, eventID int64, tier models.Tier) (int, error) {
	return countCommitted(ctx, d.Bun, eventID, tier)
}

func countCommitted(ctx context.Context, db bun.IDB, eventID int64, tier models.Tier) (int, error) {
	q := db.NewSelect().
		Model((*models.Hold)(nil)).
		Where("event_id = ?", eventID).
		Where("status IN (?)", bun.In(models.CommittedStatuses))
	if tier != "" {
		q = q.Where("tier = ?", tier)
	}
	n, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count committed holds: %w", err)
	}
	return n, nil
}

// CreateHold atomically checks capacity and inserts quantity RESERVED holds
// that expire together. Either every hold is written or none is, and
// models.ErrCapacityExceeded is returned when the seats are no longer there.
func (d *DB) CreateHold(ctx context.Context, event *models.Event, tier models.Tier, buyerID int64, quantity int, unitPrice float64) ([]models.Hold, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", models.ErrInvalidArgument)
	}

	unlock := d.locks.lock(event.ID)
	defer unlock()

	now := d.now()
	expiresAt := now.Add(d.HoldTTL)

	var holds []models.Hold
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if tx.Dialect().Name() == dialect.PG {
			var id int64
			err := tx.NewSelect().
				Model((*models.Event)(nil)).
				Column("id").
				Where("id = ?", event.ID).
				For("UPDATE").
				Scan(ctx, &id)
			if err != nil {
				return fmt.Errorf("lock event %d: %w", event.ID, err)
			}
		}

		committedAll, err := countCommitted(ctx, tx, event.ID, "")
		if err != nil {
			return err
		}
		committedTier := committedAll
		if _, limited := event.TierCapacities[tier]; limited {
			if committedTier, err = countCommitted(ctx, tx, event.ID, tier); err != nil {
				return err
			}
		}
		if event.Available(tier, committedAll, committedTier) < quantity {
			return models.ErrCapacityExceeded
		}

		holds = make([]models.Hold, quantity)
		for i := range holds {
			holds[i] = models.Hold{
				ID:        uuid.NewString(),
				EventID:   event.ID,
				BuyerID:   buyerID,
				Tier:      tier,
				Quantity:  1,
				Status:    models.HoldStatusReserved,
				Amount:    unitPrice,
				CreatedAt: now,
				ExpiresAt: &expiresAt,
				UpdatedAt: now,
			}
		}
		if _, err := tx.NewInsert().Model(&holds).Exec(ctx); err != nil {
			return fmt.Errorf("insert holds: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return holds, nil
}

// Transition moves a buyer's hold to status to, provided it is currently in
// one of from. The check and the write are a single statement, so of two
// racing transitions at most one succeeds; the loser gets
// models.ErrHoldNotFound.
func (d *DB) Transition(ctx context.Context, holdID string, buyerID int64, from []models.HoldStatus, to models.HoldStatus) (models.Hold, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Hold)(nil)).
		Set("status = ?", to).
		Set("expires_at = NULL").
		Set("updated_at = ?", d.now()).
		Where("id = ?", holdID).
		Where("buyer_id = ?", buyerID).
		Where("status IN (?)", bun.In(from)).
		Exec(ctx)
	if err != nil {
		return models.Hold{}, fmt.Errorf("transition hold %s to %s: %w", holdID, to, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Hold{}, fmt.Errorf("transition hold %s to %s: %w", holdID, to, err)
	}
	if n != 1 {
		return models.Hold{}, models.ErrHoldNotFound
	}
	return d.GetHold(ctx, holdID, buyerID)
}

// GetHold returns the hold only if it belongs to buyerID.
func (d *DB) GetHold(ctx context.Context, holdID string, buyerID int64) (models.Hold, error) {
	var hold models.Hold
	err := d.Bun.NewSelect().
		Model(&hold).
		Where("id = ?", holdID).
		Where("buyer_id = ?", buyerID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Hold{}, models.ErrHoldNotFound
	}
	if err != nil {
		return models.Hold{}, fmt.Errorf("get hold %s: %w", holdID, err)
	}
	return hold, nil
}

// ListExpired returns up to limit RESERVED holds whose deadline is at or
// before now, oldest deadline first.
func (d *DB) ListExpired(ctx context.Context, now time.Time, limit int) ([]models.Hold, error) {
	var holds []models.Hold
	err := d.Bun.NewSelect().
		Model(&holds).
		Where("status = ?", models.HoldStatusReserved).
		Where("expires_at <= ?", now.UTC()).
		Order("expires_at ASC", "id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expired holds: %w", err)
	}
	return holds, nil
}

func (d *DB) ListByBuyer(ctx context.Context, buyerID int64) ([]models.Hold, error) {
	var holds []models.Hold
	err := d.Bun.NewSelect().
		Model(&holds).
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list holds for buyer %d: %w", buyerID, err)
	}
	return holds, nil
}
