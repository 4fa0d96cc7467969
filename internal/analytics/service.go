package analytics

import (
	"context"
	"fmt"

	"ms-reservation/internal/models"
)

type EventGetter interface {
	GetEvent(ctx context.Context, id int64) (*models.Event, error)
}

type SalesDB interface {
	GetTierStatusCounts(ctx context.Context, eventID int64) ([]TierStatusRow, error)
}

// Service handles analytics operations
type Service struct {
	events EventGetter
	db     SalesDB
}

// NewService creates a new analytics service
func NewService(events EventGetter, db SalesDB) *Service {
	return &Service{events: events, db: db}
}

// TierSales contains sales metrics for a specific tier
type TierSales struct {
	Tier      models.Tier `json:"seat_type"`
	Reserved  int         `json:"reserved"`
	Confirmed int         `json:"confirmed"`
	Cancelled int         `json:"cancelled"`
	Expired   int         `json:"expired"`
	Revenue   float64     `json:"revenue"`
}

// EventSales summarises ticket sales for one event.
type EventSales struct {
	EventID          int64       `json:"event_id"`
	Capacity         int         `json:"capacity"`
	TotalTicketsSold int         `json:"total_tickets_sold"`
	TotalReserved    int         `json:"total_reserved"`
	TotalRevenue     float64     `json:"total_revenue"`
	SalesByTier      []TierSales `json:"sales_by_tier"`
}

// GetEventSales reports per-tier counts for every hold state. Revenue only
// includes confirmed tickets.
func (s *Service) GetEventSales(ctx context.Context, eventID int64) (*EventSales, error) {
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.GetTierStatusCounts(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("load sales for event %d: %w", eventID, err)
	}

	byTier := make(map[models.Tier]*TierSales, len(models.Tiers))
	summary := &EventSales{EventID: eventID, Capacity: event.Capacity}
	for _, tier := range models.Tiers {
		summary.SalesByTier = append(summary.SalesByTier, TierSales{Tier: tier})
	}
	for i := range summary.SalesByTier {
		byTier[summary.SalesByTier[i].Tier] = &summary.SalesByTier[i]
	}

	for _, row := range rows {
		tier, ok := byTier[row.Tier]
		if !ok {
			continue
		}
		switch row.Status {
		case models.HoldStatusReserved:
			tier.Reserved += row.Holds
			summary.TotalReserved += row.Holds
		case models.HoldStatusConfirmed:
			tier.Confirmed += row.Holds
			tier.Revenue += row.Amount
			summary.TotalTicketsSold += row.Holds
			summary.TotalRevenue += row.Amount
		case models.HoldStatusCancelled:
			tier.Cancelled += row.Holds
		case models.HoldStatusExpired:
			tier.Expired += row.Holds
		}
	}

	return summary, nil
}
