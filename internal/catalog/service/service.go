package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"ms-reservation/internal/models"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

type CatalogDBLayer interface {
	GetEvent(ctx context.Context, id int64) (*models.Event, error)
	CreateEvent(ctx context.Context, event *models.Event) error
	UpsertEvent(ctx context.Context, event *models.Event) error
	ListEvents(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
}

type CatalogService struct {
	DB CatalogDBLayer
}

func NewCatalogService(db CatalogDBLayer) *CatalogService {
	return &CatalogService{DB: db}
}

// GetEvent returns models.ErrEventNotFound for unknown ids.
func (s *CatalogService) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	event, err := s.DB.GetEvent(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %d: %w", id, models.ErrEventNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load event %d: %w", id, err)
	}
	return event, nil
}

func (s *CatalogService) CreateEvent(ctx context.Context, event *models.Event) error {
	if err := validateEvent(event); err != nil {
		return err
	}
	if err := s.DB.CreateEvent(ctx, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// UpsertEvent stores an event published by the upstream catalog.
func (s *CatalogService) UpsertEvent(ctx context.Context, event *models.Event) error {
	if event.ID <= 0 {
		return fmt.Errorf("%w: event id is required", models.ErrInvalidArgument)
	}
	if err := validateEvent(event); err != nil {
		return err
	}
	if err := s.DB.UpsertEvent(ctx, event); err != nil {
		return fmt.Errorf("upsert event %d: %w", event.ID, err)
	}
	return nil
}

func (s *CatalogService) ListEvents(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	if filter.Skip < 0 {
		return nil, fmt.Errorf("%w: skip must not be negative", models.ErrInvalidArgument)
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultListLimit
	case filter.Limit > maxListLimit:
		filter.Limit = maxListLimit
	}

	events, err := s.DB.ListEvents(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func validateEvent(event *models.Event) error {
	event.Name = strings.TrimSpace(event.Name)
	if event.Name == "" {
		return fmt.Errorf("%w: event name is required", models.ErrInvalidArgument)
	}
	if event.ScheduledAt.IsZero() {
		return fmt.Errorf("%w: scheduled_at is required", models.ErrInvalidArgument)
	}
	if event.Capacity < 1 {
		return fmt.Errorf("%w: capacity must be at least 1", models.ErrInvalidArgument)
	}
	if event.MinPrice < 0 {
		return fmt.Errorf("%w: min_price must not be negative", models.ErrInvalidArgument)
	}
	for tier, limit := range event.TierCapacities {
		if !tier.Valid() {
			return fmt.Errorf("%w: unknown seat tier %q", models.ErrInvalidArgument, tier)
		}
		if limit < 0 || limit > event.Capacity {
			return fmt.Errorf("%w: %s capacity must be between 0 and %d", models.ErrInvalidArgument, tier, event.Capacity)
		}
	}
	event.ScheduledAt = event.ScheduledAt.UTC()
	return nil
}
