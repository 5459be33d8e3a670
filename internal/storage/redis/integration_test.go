//go:build integration

package redis_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/dtroode/beatstream-server/internal/model"
	"github.com/dtroode/beatstream-server/internal/storage/redis"
	"github.com/dtroode/beatstream-server/internal/testutil"
)

func TestClient_Integration(t *testing.T) {
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7.4.7-alpine")
	require.NoError(t, err, "failed to start Redis container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate Redis container: %s", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	c, err := redis.NewClient(ctx, redis.Options{
		Addr:      fmt.Sprintf("%s:%s", host, port.Port()),
		OpTimeout: 2 * time.Second,
	}, testutil.MakeNoopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Set(ctx, "blacklist:tok", "1", 10*time.Minute))
	ttl, err := c.TTL(ctx, "blacklist:tok")
	require.NoError(t, err)
	assert.InDelta(t, (10 * time.Minute).Seconds(), ttl.Seconds(), 2)

	n, err := c.Incr(ctx, "rl:search:fp:anonymous")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	keys, err := c.Keys(ctx, "rl:*")
	require.NoError(t, err)
	assert.Equal(t, []string{"rl:search:fp:anonymous"}, keys)

	_, err = c.Get(ctx, "missing")
	require.ErrorIs(t, err, model.ErrKeyNotFound)
}
