package analytics

import (
	"context"

	"github.com/uptrace/bun"

	"ms-reservation/internal/models"
)

// DB handles analytics database operations
type DB struct {
	bun *bun.DB
}

// NewDB creates a new analytics DB handler
func NewDB(db *bun.DB) *DB {
	return &DB{bun: db}
}

// TierStatusRow is one (tier, status) bucket of an event's holds.
type TierStatusRow struct {
	Tier   models.Tier       `bun:"tier"`
	Status models.HoldStatus `bun:"status"`
	Holds  int               `bun:"holds"`
	Amount float64           `bun:"amount"`
}

// GetTierStatusCounts groups an event's holds by tier and status.
func (db *DB) GetTierStatusCounts(ctx context.Context, eventID int64) ([]TierStatusRow, error) {
	var rows []TierStatusRow
	err := db.bun.NewSelect().
		Model((*models.Hold)(nil)).
		ColumnExpr("tier").
		ColumnExpr("status").
		ColumnExpr("COUNT(*) AS holds").
		ColumnExpr("COALESCE(SUM(amount), 0) AS amount").
		Where("event_id = ?", eventID).
		GroupExpr("tier, status").
		OrderExpr("tier, status").
		Scan(ctx, &rows)

	return rows, err
}
