// Package soft runs key-value store calls whose failure must not fail the request.
package soft

import (
	"context"
	"errors"

	"github.com/dtroode/beatstream-server/internal/logger"
	"github.com/dtroode/beatstream-server/internal/metrics"
	"github.com/dtroode/beatstream-server/internal/model"
)

// Call runs fn and returns its result. If fn fails, the failure is logged at
// warn level and fallback is returned with ok=false. A missing key is not a
// failure: fn's zero result is returned with ok=true.
func Call[T any](ctx context.Context, log *logger.Logger, op string, fn func(ctx context.Context) (T, error), fallback T) (T, bool) {
	v, err := fn(ctx)
	if err == nil {
		return v, true
	}
	if errors.Is(err, model.ErrKeyNotFound) {
		var zero T
		return zero, true
	}

	metrics.StoreFallbacks.WithLabelValues(op).Inc()
	log.WarnContext(ctx, "store call failed, using fallback", "op", op, "error", err)
	return fallback, false
}

// Do is Call for operations without a result.
func Do(ctx context.Context, log *logger.Logger, op string, fn func(ctx context.Context) error) bool {
	_, ok := Call(ctx, log, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, struct{}{})
	return ok
}
