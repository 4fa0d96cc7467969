package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"HOLD_TTL_MINUTES", "CACHE_TTL_MINUTES", "CANCELLATION_WINDOW_HOURS", "SWEEP_INTERVAL_SECONDS", "CACHE_BACKEND", "KAFKA_BROKERS"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, 15*time.Minute, cfg.Reservation.HoldTTL)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 24*time.Hour, cfg.Reservation.CancellationWindow)
	assert.Equal(t, time.Minute, cfg.Reservation.SweepInterval)
	assert.Equal(t, 500, cfg.Reservation.SweepBatchSize)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HOLD_TTL_MINUTES", "2")
	t.Setenv("CACHE_BACKEND", "Redis")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("SWEEP_BATCH_SIZE", "not-a-number")

	cfg := Load()

	assert.Equal(t, 2*time.Minute, cfg.Reservation.HoldTTL)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, 500, cfg.Reservation.SweepBatchSize)
}
