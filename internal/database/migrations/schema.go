package migrations

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"ms-reservation/internal/models"
)

// SeedEvents are the sample concerts loaded by the seed migration.
func SeedEvents(now time.Time) []models.Event {
	return []models.Event{
		{
			Name:        "Summer Rock Festival",
			Artist:      "Various Artists",
			Venue:       "Central Park",
			Genre:       "Rock",
			Description: "Annual summer rock festival",
			ScheduledAt: now.Add(30 * 24 * time.Hour).UTC(),
			MinPrice:    50,
			Capacity:    1000,
			CreatedAt:   now.UTC(),
		},
		{
			Name:        "Classical Night",
			Artist:      "City Symphony Orchestra",
			Venue:       "Symphony Hall",
			Genre:       "Classical",
			Description: "An evening of classical masterpieces",
			ScheduledAt: now.Add(15 * 24 * time.Hour).UTC(),
			MinPrice:    75,
			Capacity:    500,
			CreatedAt:   now.UTC(),
		},
	}
}

// EnsureSchema creates the tables and indexes from the bun models. It backs
// the SQLite development mode, where the PostgreSQL migrations do not apply.
func EnsureSchema(ctx context.Context, db *bun.DB, seed bool) error {
	for _, model := range []interface{}{(*models.Event)(nil), (*models.Hold)(nil)} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	indexes := []struct {
		name    string
		columns []string
	}{
		{"idx_holds_event_status_tier", []string{"event_id", "status", "tier"}},
		{"idx_holds_status_expires_at", []string{"status", "expires_at"}},
		{"idx_holds_buyer_id", []string{"buyer_id"}},
	}
	for _, idx := range indexes {
		_, err := db.NewCreateIndex().
			Model((*models.Hold)(nil)).
			Index(idx.name).
			IfNotExists().
			Column(idx.columns...).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}

	if !seed {
		return nil
	}

	count, err := db.NewSelect().Model((*models.Event)(nil)).Count(ctx)
	if err != nil {
		return fmt.Errorf("count events: %w", err)
	}
	if count > 0 {
		return nil
	}
	events := SeedEvents(time.Now())
	if _, err := db.NewInsert().Model(&events).Exec(ctx); err != nil {
		return fmt.Errorf("seed events: %w", err)
	}
	return nil
}
