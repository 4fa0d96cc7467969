package cache_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"ms-reservation/internal/clock"
	"ms-reservation/internal/logger"
	"ms-reservation/internal/models"
	"ms-reservation/internal/reservation/cache"
)

func TestRedisCache_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("docker not available: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { client.Close() })

	clk := clock.NewManual(time.Now())
	c := cache.NewRedisCache(client, clk, 5*time.Minute, logger.NewWithWriter(io.Discard))

	c.Put(ctx, 9, models.TierVIP, 11)
	got, ok := c.Get(ctx, 9, models.TierVIP)
	require.True(t, ok)
	assert.Equal(t, 11, got)

	require.NoError(t, c.Invalidate(ctx, 9))
	_, ok = c.Get(ctx, 9, models.TierVIP)
	assert.False(t, ok)
}
