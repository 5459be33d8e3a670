package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/dtroode/beatstream-server/internal/logger"
	"github.com/dtroode/beatstream-server/internal/model"
	"github.com/dtroode/beatstream-server/internal/storage/soft"
)

// KeyPrefix prefixes every counter key.
const KeyPrefix = "rl:"

// CounterKey is the key of a fingerprint's counter for a route class.
func CounterKey(class RouteClass, fingerprint string) string {
	return KeyPrefix + class.String() + ":" + fingerprint
}

// LoginKey is the key of an account's login counter.
func LoginKey(userID string) string {
	return KeyPrefix + "login:" + userID
}

// Decision is the outcome of one counted request.
type Decision struct {
	Allowed   bool
	Count     int64
	Remaining int64
	Quota     Quota
	// Degraded is set when the store failed and the request was let through.
	Degraded bool
}

// RetryAfter is how long a rejected client should wait.
func (d Decision) RetryAfter() time.Duration {
	return d.Quota.Window
}

// Limiter counts requests in fixed windows anchored to the first hit.
type Limiter struct {
	store  model.KeyValueStore
	logger *logger.Logger
}

// NewLimiter creates a Limiter.
func NewLimiter(store model.KeyValueStore, logger *logger.Logger) *Limiter {
	return &Limiter{store: store, logger: logger}
}

// Hit counts one request against key. The window starts at the first hit;
// later hits do not extend it. Store failures allow the request.
func (l *Limiter) Hit(ctx context.Context, key string, q Quota) Decision {
	count, ok := soft.Call(ctx, l.logger, "ratelimit.incr", func(ctx context.Context) (int64, error) {
		return l.store.Incr(ctx, key)
	}, 0)
	if !ok {
		return Decision{Allowed: true, Remaining: q.Limit, Quota: q, Degraded: true}
	}

	degraded := false
	if count == 1 {
		degraded = !soft.Do(ctx, l.logger, "ratelimit.expire", func(ctx context.Context) error {
			_, err := l.store.Expire(ctx, key, q.Window)
			return err
		})
	}

	d := Decision{
		Allowed:   count <= q.Limit,
		Count:     count,
		Remaining: max(q.Limit-count, 0),
		Quota:     q,
		Degraded:  degraded,
	}
	if !d.Allowed {
		l.repairExpiry(ctx, key, q.Window)
	}
	return d
}

// repairExpiry restores the window of a counter that lost its expiry, so a
// failed EXPIRE cannot lock a client out for good.
func (l *Limiter) repairExpiry(ctx context.Context, key string, window time.Duration) {
	ttl, ok := soft.Call(ctx, l.logger, "ratelimit.ttl", func(ctx context.Context) (time.Duration, error) {
		return l.store.TTL(ctx, key)
	}, 0)
	if !ok || ttl != model.NoExpiry {
		return
	}

	l.logger.WarnContext(ctx, "rate limit counter had no expiry, restoring window", "key", key)
	soft.Do(ctx, l.logger, "ratelimit.expire", func(ctx context.Context) error {
		_, err := l.store.Expire(ctx, key, window)
		return err
	})
}

// Decrement takes one request back from key, removing the counter when it reaches zero.
func (l *Limiter) Decrement(ctx context.Context, key string) error {
	n, err := l.store.Decr(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to decrement %s: %w", key, err)
	}
	if n <= 0 {
		if _, err := l.store.Del(ctx, key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}
	return nil
}

// Reset deletes one counter.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if _, err := l.store.Del(ctx, key); err != nil {
		return fmt.Errorf("failed to reset %s: %w", key, err)
	}
	return nil
}

// ResetFingerprint deletes the counters of a fingerprint across all route classes.
func (l *Limiter) ResetFingerprint(ctx context.Context, fingerprint string) (int64, error) {
	keys, err := l.store.Keys(ctx, KeyPrefix+"*:"+fingerprint)
	if err != nil {
		return 0, fmt.Errorf("failed to list counters: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := l.store.Del(ctx, keys...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete counters: %w", err)
	}
	return n, nil
}
