package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludotheque/ludo-api/internal/config"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	if err = pool.Client.Ping(); err != nil {
		t.Skipf("docker unavailable: %v", err)
	}

	resource, err := pool.Run("redis", "7-alpine", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Purge(resource) })

	var client *redis.Client
	err = pool.Retry(func() error {
		var err error
		client, err = NewRedisClient(context.Background(), &config.RedisConfig{
			Addr: fmt.Sprintf("localhost:%s", resource.GetPort("6379/tcp")),
		})
		return err
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestNewRedisClient_NotConfigured(t *testing.T) {
	client, err := NewRedisClient(context.Background(), &config.RedisConfig{})
	assert.NoError(t, err)
	assert.Nil(t, client)
}

func TestRedis(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()

	stats := NewRedis(client, "test:stats")
	other := NewRedis(client, "test:other")

	require.NoError(t, stats.Set(ctx, "2026-03-14", payload{ID: 1, Role: "user"}, time.Minute))
	require.NoError(t, other.Set(ctx, "2026-03-14", payload{ID: 2}, time.Minute))

	var got payload
	found, err := stats.Get(ctx, "2026-03-14", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint(1), got.ID)

	require.NoError(t, stats.Clear(ctx))

	found, err = stats.Get(ctx, "2026-03-14", &got)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = other.Get(ctx, "2026-03-14", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint(2), got.ID)

	require.NoError(t, other.Delete(ctx, "2026-03-14"))
	found, err = other.Get(ctx, "2026-03-14", &got)
	require.NoError(t, err)
	assert.False(t, found)
}
