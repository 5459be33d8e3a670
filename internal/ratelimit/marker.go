package ratelimit

import (
	"context"
	"sync/atomic"
)

type markerKey struct{}

// Marker records that a request must not count against its quota.
type Marker struct {
	skip atomic.Bool
}

// Skipped reports whether the request was marked.
func (m *Marker) Skipped() bool {
	return m.skip.Load()
}

// WithMarker returns ctx carrying a Marker, reusing one already present.
func WithMarker(ctx context.Context) (context.Context, *Marker) {
	if m, ok := ctx.Value(markerKey{}).(*Marker); ok {
		return ctx, m
	}
	m := &Marker{}
	return context.WithValue(ctx, markerKey{}, m), m
}

// SkipRateLimit marks the request carried by ctx. Marking before the limiter
// runs bypasses it; marking inside the handler refunds the counted hit.
func SkipRateLimit(ctx context.Context) {
	if m, ok := ctx.Value(markerKey{}).(*Marker); ok {
		m.skip.Store(true)
	}
}
