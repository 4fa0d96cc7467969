package ledger

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// eventLocks serializes capacity checks per event within this process.
// Entries are never evicted; one mutex per event ever reserved is kept.
type eventLocks struct {
	m *xsync.MapOf[int64, *sync.Mutex]
}

func newEventLocks() *eventLocks {
	return &eventLocks{m: xsync.NewMapOf[int64, *sync.Mutex]()}
}

func (l *eventLocks) lock(eventID int64) (unlock func()) {
	mu, _ := l.m.LoadOrCompute(eventID, func() *sync.Mutex { return &sync.Mutex{} })
	mu.Lock()
	return mu.Unlock
}
