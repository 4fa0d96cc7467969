package reservation

import (
	"context"
	"errors"

	"ms-reservation/internal/models"
)

// Notifier receives hold lifecycle events after the ledger has committed
// them. Delivery is best effort.
type Notifier interface {
	NotifyHoldEvent(ctx context.Context, event models.HoldEvent) error
}

// Notifiers fans an event out to every notifier, collecting their errors.
type Notifiers []Notifier

func (n Notifiers) NotifyHoldEvent(ctx context.Context, event models.HoldEvent) error {
	var errs []error
	for _, notifier := range n {
		if err := notifier.NotifyHoldEvent(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
