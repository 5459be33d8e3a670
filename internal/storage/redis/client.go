package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/dtroode/beatstream-server/internal/logger"
	"github.com/dtroode/beatstream-server/internal/metrics"
	"github.com/dtroode/beatstream-server/internal/model"
)

// Default timeouts for store operations.
const (
	DefaultDialTimeout = 5 * time.Second
	DefaultOpTimeout   = 3 * time.Second
)

const (
	breakerName = "redis"
	scanCount   = 500
)

var _ model.KeyValueStore = (*Client)(nil)

// Options holds connection configuration for the store client.
type Options struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
	// OpTimeout bounds every single store call.
	OpTimeout time.Duration
}

// Client implements model.KeyValueStore over go-redis. Every call runs under
// its own deadline and through a circuit breaker so a degraded store fails fast.
type Client struct {
	rdb       redis.UniversalClient
	breaker   *gobreaker.CircuitBreaker[any]
	opTimeout time.Duration
	logger    *logger.Logger
}

// NewClient connects to the store and verifies the connection with PING.
func NewClient(ctx context.Context, opts Options, logger *logger.Logger) (*Client, error) {
	if opts.DialTimeout == 0 {
		opts.DialTimeout = DefaultDialTimeout
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.OpTimeout,
		WriteTimeout: opts.OpTimeout,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewClientWithRedis(rdb, opts.OpTimeout, logger), nil
}

// NewClientWithRedis wraps a pre-configured client. Used with miniredis in tests.
func NewClientWithRedis(rdb redis.UniversalClient, opTimeout time.Duration, logger *logger.Logger) *Client {
	if opTimeout <= 0 {
		opTimeout = DefaultOpTimeout
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 5 {
				return true
			}
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		// A missing key is an answer, not a failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("store circuit breaker state changed", "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &Client{
		rdb:       rdb,
		breaker:   cb,
		opTimeout: opTimeout,
		logger:    logger,
	}
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Get returns the value stored at key.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	v, err := execute(ctx, c, func(ctx context.Context) (string, error) {
		return c.rdb.Get(ctx, key).Result()
	})
	return v, mapNil(err)
}

// Set writes value at key. A zero ttl stores the key without expiry.
func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	_, err := execute(ctx, c, func(ctx context.Context) (string, error) {
		return c.rdb.Set(ctx, key, value, ttl).Result()
	})
	return err
}

// GetDel atomically reads and removes key.
func (c *Client) GetDel(ctx context.Context, key string) (string, error) {
	v, err := execute(ctx, c, func(ctx context.Context) (string, error) {
		return c.rdb.GetDel(ctx, key).Result()
	})
	return v, mapNil(err)
}

// Del removes keys in one command and returns how many existed.
func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	return execute(ctx, c, func(ctx context.Context) (int64, error) {
		return c.rdb.Del(ctx, keys...).Result()
	})
}

// Exists reports whether key is present.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	n, err := execute(ctx, c, func(ctx context.Context) (int64, error) {
		return c.rdb.Exists(ctx, key).Result()
	})
	return n > 0, err
}

// Incr atomically increments the integer at key.
func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	return execute(ctx, c, func(ctx context.Context) (int64, error) {
		return c.rdb.Incr(ctx, key).Result()
	})
}

// Decr atomically decrements the integer at key.
func (c *Client) Decr(ctx context.Context, key string) (int64, error) {
	return execute(ctx, c, func(ctx context.Context) (int64, error) {
		return c.rdb.Decr(ctx, key).Result()
	})
}

// Expire sets a ttl on key. It returns false if the key does not exist.
func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return execute(ctx, c, func(ctx context.Context) (bool, error) {
		return c.rdb.Expire(ctx, key, ttl).Result()
	})
}

// TTL returns the remaining lifetime of key.
func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := execute(ctx, c, func(ctx context.Context) (time.Duration, error) {
		return c.rdb.TTL(ctx, key).Result()
	})
	if err != nil {
		return 0, err
	}

	// go-redis passes the -1 / -2 replies through unscaled.
	switch d {
	case -2:
		return 0, model.ErrKeyNotFound
	case -1:
		return model.NoExpiry, nil
	}
	return d, nil
}

// Keys enumerates keys matching a glob pattern. It iterates with SCAN so a
// large keyspace does not block the server.
func (c *Client) Keys(ctx context.Context, pattern string) ([]string, error) {
	return execute(ctx, c, func(ctx context.Context) ([]string, error) {
		var (
			keys   []string
			cursor uint64
		)
		for {
			batch, next, err := c.rdb.Scan(ctx, cursor, pattern, scanCount).Result()
			if err != nil {
				return nil, err
			}
			keys = append(keys, batch...)
			if next == 0 {
				return keys, nil
			}
			cursor = next
		}
	})
}

// MGet reads several keys in one round trip. Absent keys are omitted.
func (c *Client) MGet(ctx context.Context, keys ...string) (map[string]string, error) {
	if len(keys) == 0 {
		return map[string]string{}, nil
	}

	vals, err := execute(ctx, c, func(ctx context.Context) ([]any, error) {
		return c.rdb.MGet(ctx, keys...).Result()
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(keys))
	for i, v := range vals {
		if s, ok := v.(string); ok {
			out[keys[i]] = s
		}
	}
	return out, nil
}

// MSet writes several keys with the same ttl in one pipeline.
func (c *Client) MSet(ctx context.Context, values map[string]string, ttl time.Duration) error {
	if len(values) == 0 {
		return nil
	}

	_, err := execute(ctx, c, func(ctx context.Context) ([]redis.Cmder, error) {
		return c.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
			for k, v := range values {
				p.Set(ctx, k, v, ttl)
			}
			return nil
		})
	})
	return err
}

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error {
	_, err := execute(ctx, c, func(ctx context.Context) (string, error) {
		return c.rdb.Ping(ctx).Result()
	})
	return err
}

// execute runs fn under the per-call deadline and the circuit breaker.
func execute[T any](ctx context.Context, c *Client, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	res, err := c.breaker.Execute(func() (any, error) {
		return fn(ctx)
	})

	var zero T
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "rejected").Inc()
			return zero, fmt.Errorf("store unavailable: %w", err)
		}
		if !errors.Is(err, redis.Nil) {
			metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "failure").Inc()
			return zero, err
		}
	}
	metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()

	v, ok := res.(T)
	if !ok {
		return zero, err
	}
	return v, err
}

func mapNil(err error) error {
	if errors.Is(err, redis.Nil) {
		return model.ErrKeyNotFound
	}
	return err
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
