package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-reservation/internal/clock"
	"ms-reservation/internal/logger"
	"ms-reservation/internal/models"
)

// RedisCache shares availability counts between service instances through
// redis. Entries expire in redis after the TTL and their age is also checked
// against the injected clock.
type RedisCache struct {
	client *redis.Client
	clock  clock.Clock
	ttl    time.Duration
	logger *logger.Logger
}

type redisEntry struct {
	Available int       `json:"available"`
	CachedAt  time.Time `json:"cached_at"`
}

func NewRedisCache(client *redis.Client, clk clock.Clock, ttl time.Duration, log *logger.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, clock: clk, ttl: ttl, logger: log}
}

func redisKey(eventID int64, tier models.Tier) string {
	return fmt.Sprintf("availability:%d:%s", eventID, tier)
}

func (c *RedisCache) Get(ctx context.Context, eventID int64, tier models.Tier) (int, bool) {
	raw, err := c.client.Get(ctx, redisKey(eventID, tier)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("CACHE", fmt.Sprintf("redis get failed for event %d: %v", eventID, err))
		}
		return 0, false
	}

	var e redisEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		c.logger.Warn("CACHE", fmt.Sprintf("corrupt cache entry for event %d: %v", eventID, err))
		return 0, false
	}
	if c.clock.Now().Sub(e.CachedAt) >= c.ttl {
		return 0, false
	}
	return e.Available, true
}

func (c *RedisCache) Put(ctx context.Context, eventID int64, tier models.Tier, available int) {
	raw, err := json.Marshal(redisEntry{Available: available, CachedAt: c.clock.Now()})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, redisKey(eventID, tier), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("CACHE", fmt.Sprintf("redis set failed for event %d: %v", eventID, err))
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, eventID int64) error {
	keys := make([]string, 0, len(models.Tiers))
	for _, tier := range models.Tiers {
		keys = append(keys, redisKey(eventID, tier))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate availability for event %d: %w", eventID, err)
	}
	c.logger.LogCache("INVALIDATE", eventID, "dropped cached availability")
	return nil
}
