// Package cache provides namespaced, TTL-bounded JSON caching over the
// key-value store. Reads are best effort: a failed read is a miss.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/dtroode/beatstream-server/internal/logger"
	"github.com/dtroode/beatstream-server/internal/metrics"
	"github.com/dtroode/beatstream-server/internal/model"
	"github.com/dtroode/beatstream-server/internal/storage/soft"
)

// ErrInvalidTTL is returned by writes without a positive ttl.
var ErrInvalidTTL = errors.New("cache: ttl must be positive")

// Service is the generic cache over the key-value store.
type Service struct {
	store  model.KeyValueStore
	logger *logger.Logger
}

// NewService creates a cache Service.
func NewService(store model.KeyValueStore, logger *logger.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Set stores value as JSON at key for ttl. Store failures are logged and returned.
func (s *Service) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value for %s: %w", key, err)
	}

	if err := s.store.Set(ctx, key, string(data), ttl); err != nil {
		metrics.CacheOperations.WithLabelValues("set", "error").Inc()
		s.logger.WarnContext(ctx, "cache set failed", "key", key, "error", err)
		return fmt.Errorf("failed to set cache key %s: %w", key, err)
	}

	metrics.CacheOperations.WithLabelValues("set", "ok").Inc()
	return nil
}

// Get decodes the value at key into dst. It reports false on a miss, on a
// store failure and on a decode failure alike.
func (s *Service) Get(ctx context.Context, key string, dst any) bool {
	raw, ok := soft.Call(ctx, s.logger, "cache.get", func(ctx context.Context) (string, error) {
		return s.store.Get(ctx, key)
	}, "")
	if !ok {
		metrics.CacheOperations.WithLabelValues("get", "error").Inc()
		return false
	}
	if raw == "" {
		metrics.CacheOperations.WithLabelValues("get", "miss").Inc()
		return false
	}

	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		metrics.CacheOperations.WithLabelValues("get", "error").Inc()
		s.logger.WarnContext(ctx, "cache value could not be decoded", "key", key, "error", err)
		return false
	}

	metrics.CacheOperations.WithLabelValues("get", "hit").Inc()
	return true
}

// Del removes keys and returns how many existed, 0 on failure.
func (s *Service) Del(ctx context.Context, keys ...string) int64 {
	n, ok := soft.Call(ctx, s.logger, "cache.del", func(ctx context.Context) (int64, error) {
		return s.store.Del(ctx, keys...)
	}, 0)
	if !ok {
		metrics.CacheOperations.WithLabelValues("del", "error").Inc()
		return 0
	}
	metrics.CacheOperations.WithLabelValues("del", "ok").Inc()
	return n
}

// DelByPattern lists the keys matching a glob pattern and deletes them in one
// batch. It returns the number deleted, 0 on any failure.
func (s *Service) DelByPattern(ctx context.Context, pattern string) int64 {
	keys, ok := soft.Call(ctx, s.logger, "cache.keys", func(ctx context.Context) ([]string, error) {
		return s.store.Keys(ctx, pattern)
	}, nil)
	if !ok {
		metrics.CacheOperations.WithLabelValues("del_pattern", "error").Inc()
		return 0
	}
	if len(keys) == 0 {
		return 0
	}

	n, ok := soft.Call(ctx, s.logger, "cache.del_pattern", func(ctx context.Context) (int64, error) {
		return s.store.Del(ctx, keys...)
	}, 0)
	if !ok {
		metrics.CacheOperations.WithLabelValues("del_pattern", "error").Inc()
		return 0
	}

	metrics.CacheOperations.WithLabelValues("del_pattern", "ok").Inc()
	s.logger.DebugContext(ctx, "cache invalidated", "pattern", pattern, "deleted", n)
	return n
}

// Exists reports whether key is cached. Failures read as false.
func (s *Service) Exists(ctx context.Context, key string) bool {
	ok, _ := soft.Call(ctx, s.logger, "cache.exists", func(ctx context.Context) (bool, error) {
		return s.store.Exists(ctx, key)
	}, false)
	return ok
}

// Expire resets the ttl of key. Store failures are logged and returned.
func (s *Service) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	if _, err := s.store.Expire(ctx, key, ttl); err != nil {
		s.logger.WarnContext(ctx, "cache expire failed", "key", key, "error", err)
		return fmt.Errorf("failed to expire cache key %s: %w", key, err)
	}
	return nil
}

// MGet returns the raw JSON of the present keys. Failures read as all misses.
func (s *Service) MGet(ctx context.Context, keys ...string) map[string]json.RawMessage {
	vals, _ := soft.Call(ctx, s.logger, "cache.mget", func(ctx context.Context) (map[string]string, error) {
		return s.store.MGet(ctx, keys...)
	}, nil)

	out := make(map[string]json.RawMessage, len(vals))
	for k, v := range vals {
		out[k] = json.RawMessage(v)
	}
	return out
}

// MSet stores every value as JSON with the same ttl.
func (s *Service) MSet(ctx context.Context, values map[string]any, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	encoded := make(map[string]string, len(values))
	for k, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode cache value for %s: %w", k, err)
		}
		encoded[k] = string(data)
	}

	if err := s.store.MSet(ctx, encoded, ttl); err != nil {
		s.logger.WarnContext(ctx, "cache mset failed", "keys", len(values), "error", err)
		return fmt.Errorf("failed to set %d cache keys: %w", len(values), err)
	}
	return nil
}

// InvalidateEntity drops every key of one entity (ns:id*) and every key of
// the aggregate namespaces whose views may include it.
func (s *Service) InvalidateEntity(ctx context.Context, ns Namespace, id string, aggregates ...Namespace) int64 {
	total := s.DelByPattern(ctx, Key(ns, id)+"*")
	for _, agg := range aggregates {
		total += s.DelByPattern(ctx, agg.Pattern())
	}
	return total
}

// Fetch returns the cached value at key or loads, caches and returns it.
// Cache write failures do not fail the call.
func Fetch[T any](ctx context.Context, s *Service, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	var v T
	if s.Get(ctx, key, &v) {
		return v, nil
	}

	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	_ = s.Set(ctx, key, v, ttl)
	return v, nil
}
