// Package cache keeps code -> destination entries in Redis so redirects can
// skip the database. A nil *URLCache is valid and behaves as an always-miss cache.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "short:"

// Entry is what a redirect needs: the URL id for the click row and the destination.
type Entry struct {
	URLID       int64  `json:"id"`
	Destination string `json:"url"`
}

type URLCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(rdb *redis.Client, ttl time.Duration) *URLCache {
	if rdb == nil {
		return nil
	}
	return &URLCache{rdb: rdb, ttl: ttl}
}

// Get returns (nil, nil) on a miss.
func (c *URLCache) Get(ctx context.Context, code string) (*Entry, error) {
	if c == nil {
		return nil, nil
	}
	val, err := c.rdb.Get(ctx, keyPrefix+code).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := json.Unmarshal(val, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *URLCache) Set(ctx context.Context, code string, e Entry) error {
	if c == nil {
		return nil
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, keyPrefix+code, b, c.ttl).Err()
}

func (c *URLCache) Delete(ctx context.Context, code string) error {
	if c == nil {
		return nil
	}
	return c.rdb.Del(ctx, keyPrefix+code).Err()
}

func (c *URLCache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}

func (c *URLCache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
