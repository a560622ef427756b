package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCacheIsAlwaysMiss(t *testing.T) {
	c := New(nil, time.Hour)
	require.Nil(t, c)

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "abc123", Entry{URLID: 1, Destination: "https://example.com"}))
	e, err := c.Get(ctx, "abc123")
	require.NoError(t, err)
	assert.Nil(t, e)
	assert.NoError(t, c.Delete(ctx, "abc123"))
	assert.NoError(t, c.Ping(ctx))
	assert.NoError(t, c.Close())
}

func TestUnreachableRedisReportsErrors(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := New(rdb, time.Hour)
	t.Cleanup(func() { _ = c.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := c.Get(ctx, "abc123")
	assert.Error(t, err)
	assert.Error(t, c.Set(ctx, "abc123", Entry{URLID: 1, Destination: "https://example.com"}))
}
