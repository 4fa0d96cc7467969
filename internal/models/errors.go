package models

import "errors"

var (
	ErrEventNotFound            = errors.New("event not found")
	ErrEventAlreadyOccurred     = errors.New("event has already taken place")
	ErrInsufficientAvailability = errors.New("not enough tickets available")
	ErrCapacityExceeded         = errors.New("capacity exceeded")
	ErrNotFoundOrUnauthorized   = errors.New("ticket not found or unauthorized")
	ErrReservationExpired       = errors.New("ticket reservation has expired")
	ErrCancellationWindowClosed = errors.New("cancellation window has closed")
	ErrInvalidArgument          = errors.New("invalid argument")

	// ErrHoldNotFound is the ledger's answer when no hold matches a lookup or
	// a transition guard.
	ErrHoldNotFound = errors.New("hold not found")
)
