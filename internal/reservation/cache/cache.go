package cache

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"ms-reservation/internal/clock"
	"ms-reservation/internal/models"
)

const DefaultTTL = 5 * time.Minute

// Cache holds advisory availability counts. It is never the source of truth:
// a miss or an error only means the ledger has to be asked.
type Cache interface {
	Get(ctx context.Context, eventID int64, tier models.Tier) (int, bool)
	Put(ctx context.Context, eventID int64, tier models.Tier, available int)
	Invalidate(ctx context.Context, eventID int64) error
}

type key struct {
	EventID int64
	Tier    models.Tier
}

type entry struct {
	available int
	cachedAt  time.Time
}

// MemoryCache keeps entries in process memory.
type MemoryCache struct {
	entries *xsync.MapOf[key, entry]
	clock   clock.Clock
	ttl     time.Duration
}

func NewMemoryCache(clk clock.Clock, ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{
		entries: xsync.NewMapOf[key, entry](),
		clock:   clk,
		ttl:     ttl,
	}
}

func (c *MemoryCache) Get(_ context.Context, eventID int64, tier models.Tier) (int, bool) {
	k := key{EventID: eventID, Tier: tier}
	e, ok := c.entries.Load(k)
	if !ok {
		return 0, false
	}
	if c.clock.Now().Sub(e.cachedAt) >= c.ttl {
		c.entries.Delete(k)
		return 0, false
	}
	return e.available, true
}

func (c *MemoryCache) Put(_ context.Context, eventID int64, tier models.Tier, available int) {
	c.entries.Store(key{EventID: eventID, Tier: tier}, entry{available: available, cachedAt: c.clock.Now()})
}

func (c *MemoryCache) Invalidate(_ context.Context, eventID int64) error {
	for _, tier := range models.Tiers {
		c.entries.Delete(key{EventID: eventID, Tier: tier})
	}
	return nil
}
