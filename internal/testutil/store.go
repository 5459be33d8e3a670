package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dtroode/beatstream-server/internal/model"
	"github.com/dtroode/beatstream-server/internal/storage/redis"
)

// NewMiniRedisStore starts an in-memory Redis and returns a store client bound to it.
func NewMiniRedisStore(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, redis.NewClientWithRedis(rdb, time.Second, MakeNoopLogger())
}

// ErrStoreDown is returned by every FailingStore call.
var ErrStoreDown = errors.New("store down")

// FailingStore is a key-value store whose every call fails.
type FailingStore struct{}

var _ model.KeyValueStore = FailingStore{}

func (FailingStore) Get(context.Context, string) (string, error) { return "", ErrStoreDown }
func (FailingStore) Set(context.Context, string, string, time.Duration) error {
	return ErrStoreDown
}
func (FailingStore) GetDel(context.Context, string) (string, error)  { return "", ErrStoreDown }
func (FailingStore) Del(context.Context, ...string) (int64, error)   { return 0, ErrStoreDown }
func (FailingStore) Exists(context.Context, string) (bool, error)    { return false, ErrStoreDown }
func (FailingStore) Incr(context.Context, string) (int64, error)     { return 0, ErrStoreDown }
func (FailingStore) Decr(context.Context, string) (int64, error)     { return 0, ErrStoreDown }
func (FailingStore) Keys(context.Context, string) ([]string, error)  { return nil, ErrStoreDown }
func (FailingStore) Ping(context.Context) error                      { return ErrStoreDown }
func (FailingStore) TTL(context.Context, string) (time.Duration, error) {
	return 0, ErrStoreDown
}
func (FailingStore) Expire(context.Context, string, time.Duration) (bool, error) {
	return false, ErrStoreDown
}
func (FailingStore) MGet(context.Context, ...string) (map[string]string, error) {
	return nil, ErrStoreDown
}
func (FailingStore) MSet(context.Context, map[string]string, time.Duration) error {
	return ErrStoreDown
}
