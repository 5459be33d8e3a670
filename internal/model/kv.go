package model

import (
	"context"
	"time"
)

// NoExpiry is returned by KeyValueStore.TTL for keys without an expiry.
const NoExpiry time.Duration = -1

// KeyValueStore is the TTL-capable key-value store shared by the cache,
// the rate limiter and the token lifecycle.
type KeyValueStore interface {
	// Get returns ErrKeyNotFound when the key is absent.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// GetDel returns ErrKeyNotFound when the key is absent.
	GetDel(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) (int64, error)
	Exists(ctx context.Context, key string) (bool, error)
	Incr(ctx context.Context, key string) (int64, error)
	Decr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// TTL returns NoExpiry for keys without an expiry and ErrKeyNotFound for absent keys.
	TTL(ctx context.Context, key string) (time.Duration, error)
	Keys(ctx context.Context, pattern string) ([]string, error)
	// MGet returns only the keys that are present.
	MGet(ctx context.Context, keys ...string) (map[string]string, error)
	MSet(ctx context.Context, values map[string]string, ttl time.Duration) error
	Ping(ctx context.Context) error
}
