package db

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"ms-reservation/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (d *DB) CreateEvent(ctx context.Context, event *models.Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	_, err := d.Bun.NewInsert().Model(event).Returning("id").Exec(ctx)
	return err
}

// UpsertEvent inserts the event or overwrites the stored row with the same id.
func (d *DB) UpsertEvent(ctx context.Context, event *models.Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	_, err := d.Bun.NewInsert().
		Model(event).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("artist = EXCLUDED.artist").
		Set("venue = EXCLUDED.venue").
		Set("genre = EXCLUDED.genre").
		Set("description = EXCLUDED.description").
		Set("scheduled_at = EXCLUDED.scheduled_at").
		Set("min_price = EXCLUDED.min_price").
		Set("capacity = EXCLUDED.capacity").
		Set("tier_capacities = EXCLUDED.tier_capacities").
		Exec(ctx)
	return err
}

func (d *DB) ListEvents(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	var events []models.Event
	q := d.Bun.NewSelect().Model(&events)

	if filter.Genre != "" {
		q = q.Where("genre = ?", filter.Genre)
	}
	if filter.MinPrice != nil {
		q = q.Where("min_price >= ?", *filter.MinPrice)
	}
	if !filter.UpcomingAfter.IsZero() {
		q = q.Where("scheduled_at >= ?", filter.UpcomingAfter)
	}

	err := q.Order("scheduled_at ASC", "id ASC").
		Offset(filter.Skip).
		Limit(filter.Limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return events, nil
}
