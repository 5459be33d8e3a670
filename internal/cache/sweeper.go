package cache

import (
	"context"
	"errors"
	"time"

	"github.com/dtroode/beatstream-server/internal/logger"
	"github.com/dtroode/beatstream-server/internal/metrics"
	"github.com/dtroode/beatstream-server/internal/model"
)

const sweepTimeout = 2 * time.Minute

// Sweeper deletes managed keys that have no expiry. Every key this service
// writes carries a TTL, so a key without one is a leak.
type Sweeper struct {
	store    model.KeyValueStore
	logger   *logger.Logger
	prefixes []string
}

// NewSweeper creates a Sweeper over the cache namespaces plus extra key prefixes.
func NewSweeper(store model.KeyValueStore, logger *logger.Logger, extraPrefixes ...string) *Sweeper {
	prefixes := make([]string, 0, len(Namespaces())+len(extraPrefixes))
	for _, ns := range Namespaces() {
		prefixes = append(prefixes, string(ns)+":")
	}
	prefixes = append(prefixes, extraPrefixes...)

	return &Sweeper{store: store, logger: logger, prefixes: prefixes}
}

// Sweep scans every managed prefix and deletes keys without expiry.
// It returns the number of keys deleted.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	var stale []string
	for _, prefix := range s.prefixes {
		keys, err := s.store.Keys(ctx, prefix+"*")
		if err != nil {
			return 0, err
		}
		for _, key := range keys {
			ttl, err := s.store.TTL(ctx, key)
			if errors.Is(err, model.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return 0, err
			}
			if ttl == model.NoExpiry {
				stale = append(stale, key)
			}
		}
	}

	if len(stale) == 0 {
		return 0, nil
	}

	n, err := s.store.Del(ctx, stale...)
	if err != nil {
		return 0, err
	}
	metrics.SweepDeletedKeys.Add(float64(n))
	return n, nil
}

// Run is the scheduled entry point. Failures are logged and retried next tick.
func (s *Sweeper) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := s.Sweep(ctx)
	if err != nil {
		s.logger.Warn("cache sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("cache sweep removed keys without expiry", "deleted", n)
	}
}
