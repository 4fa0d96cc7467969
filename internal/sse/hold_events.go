package sse

import (
	"context"
	"sync"

	"ms-reservation/internal/models"
)

// HoldEventEmitter fans hold lifecycle events out to SSE clients watching an
// event.
type HoldEventEmitter struct {
	clients map[int64][]chan models.HoldEvent
	mu      sync.RWMutex
}

func NewHoldEventEmitter() *HoldEventEmitter {
	return &HoldEventEmitter{
		clients: make(map[int64][]chan models.HoldEvent),
	}
}

// Subscribe registers a client for eventID. The returned channel is closed
// once ctx is done.
func (e *HoldEventEmitter) Subscribe(ctx context.Context, eventID int64) <-chan models.HoldEvent {
	clientChan := make(chan models.HoldEvent, 10)

	e.mu.Lock()
	e.clients[eventID] = append(e.clients[eventID], clientChan)
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.remove(eventID, clientChan)
	}()

	return clientChan
}

// NotifyHoldEvent broadcasts to every subscriber of the event. Slow clients
// with a full buffer miss the event rather than blocking the sender.
func (e *HoldEventEmitter) NotifyHoldEvent(_ context.Context, event models.HoldEvent) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, clientChan := range e.clients[event.EventID] {
		select {
		case clientChan <- event:
		default:
		}
	}
	return nil
}

func (e *HoldEventEmitter) remove(eventID int64, clientChan chan models.HoldEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	clients := e.clients[eventID]
	for i, ch := range clients {
		if ch == clientChan {
			e.clients[eventID] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}

	if len(e.clients[eventID]) == 0 {
		delete(e.clients, eventID)
	}
}

// ClientCount returns the number of clients currently subscribed to an event
func (e *HoldEventEmitter) ClientCount(eventID int64) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.clients[eventID])
}
