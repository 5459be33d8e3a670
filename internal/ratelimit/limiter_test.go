package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/beatstream-server/internal/mocks"
	"github.com/dtroode/beatstream-server/internal/model"
	"github.com/dtroode/beatstream-server/internal/testutil"
)

func TestLimiter_ExpireOnlyOnFirstHit(t *testing.T) {
	ctx := context.Background()
	store := &mocks.KeyValueStore{}
	q := QuotaFor(ClassGeneral, TierAnonymous)
	key := CounterKey(ClassGeneral, "fp:anonymous")

	store.On("Incr", ctx, key).Return(int64(1), nil).Once()
	store.On("Incr", ctx, key).Return(int64(2), nil).Once()
	store.On("Expire", ctx, key, 15*time.Minute).Return(true, nil).Once()

	l := NewLimiter(store, testutil.MakeNoopLogger())
	assert.True(t, l.Hit(ctx, key, q).Allowed)
	assert.True(t, l.Hit(ctx, key, q).Allowed)

	store.AssertExpectations(t)
	store.AssertNumberOfCalls(t, "Expire", 1)
}

func TestLimiter_WindowAnchoredToFirstHit(t *testing.T) {
	ctx := context.Background()
	mr, store := testutil.NewMiniRedisStore(t)
	l := NewLimiter(store, testutil.MakeNoopLogger())
	q := QuotaFor(ClassSearch, TierAnonymous)
	key := CounterKey(ClassSearch, "fp:anonymous")

	l.Hit(ctx, key, q)
	assert.Equal(t, time.Minute, mr.TTL(key))

	mr.FastForward(40 * time.Second)
	l.Hit(ctx, key, q)
	assert.Equal(t, 20*time.Second, mr.TTL(key), "second hit must not extend the window")

	mr.FastForward(21 * time.Second)
	d := l.Hit(ctx, key, q)
	assert.Equal(t, int64(1), d.Count, "expired window starts over")
}

func TestLimiter_QuotaBoundary(t *testing.T) {
	ctx := context.Background()
	_, store := testutil.NewMiniRedisStore(t)
	l := NewLimiter(store, testutil.MakeNoopLogger())
	q := QuotaFor(ClassGeneral, TierAnonymous)
	key := CounterKey(ClassGeneral, "fp:anonymous")

	var d Decision
	for i := 0; i < 500; i++ {
		d = l.Hit(ctx, key, q)
		require.True(t, d.Allowed, "request %d", i+1)
	}
	assert.Equal(t, int64(0), d.Remaining)

	d = l.Hit(ctx, key, q)
	assert.False(t, d.Allowed)
	assert.Equal(t, int64(501), d.Count)
	assert.Equal(t, 15*time.Minute, d.RetryAfter())
}

func TestLimiter_FailOpen(t *testing.T) {
	l := NewLimiter(testutil.FailingStore{}, testutil.MakeNoopLogger())
	q := QuotaFor(ClassStrict, TierAnonymous)

	for i := 0; i < 10; i++ {
		d := l.Hit(context.Background(), CounterKey(ClassStrict, "fp"), q)
		assert.True(t, d.Allowed)
		assert.True(t, d.Degraded)
	}
}

func TestLimiter_RepairsCounterWithoutExpiry(t *testing.T) {
	ctx := context.Background()
	mr, store := testutil.NewMiniRedisStore(t)
	l := NewLimiter(store, testutil.MakeNoopLogger())
	q := QuotaFor(ClassStrict, TierAnonymous)
	key := CounterKey(ClassStrict, "fp:anonymous")

	require.NoError(t, mr.Set(key, "5"))

	d := l.Hit(ctx, key, q)
	assert.False(t, d.Allowed)
	assert.Equal(t, 15*time.Minute, mr.TTL(key))
}

func TestLimiter_DecrementAndReset(t *testing.T) {
	ctx := context.Background()
	mr, store := testutil.NewMiniRedisStore(t)
	l := NewLimiter(store, testutil.MakeNoopLogger())
	q := QuotaFor(ClassAuth, TierAnonymous)
	key := CounterKey(ClassAuth, "fp:anonymous")

	l.Hit(ctx, key, q)
	l.Hit(ctx, key, q)

	require.NoError(t, l.Decrement(ctx, key))
	v, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "1", v)
	assert.Equal(t, 15*time.Minute, mr.TTL(key), "decrement keeps the window")

	require.NoError(t, l.Decrement(ctx, key))
	assert.False(t, mr.Exists(key))

	l.Hit(ctx, key, q)
	require.NoError(t, l.Reset(ctx, key))
	assert.False(t, mr.Exists(key))
}

func TestLimiter_ResetFingerprint(t *testing.T) {
	ctx := context.Background()
	mr, store := testutil.NewMiniRedisStore(t)
	l := NewLimiter(store, testutil.MakeNoopLogger())

	l.Hit(ctx, CounterKey(ClassGeneral, "abc:u1"), QuotaFor(ClassGeneral, TierAuthenticated))
	l.Hit(ctx, CounterKey(ClassSearch, "abc:u1"), QuotaFor(ClassSearch, TierAuthenticated))
	l.Hit(ctx, CounterKey(ClassSearch, "def:u2"), QuotaFor(ClassSearch, TierAuthenticated))

	n, err := l.ResetFingerprint(ctx, "abc:u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.True(t, mr.Exists(CounterKey(ClassSearch, "def:u2")))
}

func TestLimiter_DecrementStoreError(t *testing.T) {
	store := &mocks.KeyValueStore{}
	store.On("Decr", mock.Anything, "k").Return(int64(0), assert.AnError)

	l := NewLimiter(store, testutil.MakeNoopLogger())
	require.ErrorIs(t, l.Decrement(context.Background(), "k"), assert.AnError)
}

func TestMarker(t *testing.T) {
	ctx, m := WithMarker(context.Background())
	assert.False(t, m.Skipped())

	ctx2, m2 := WithMarker(ctx)
	assert.Same(t, m, m2)
	assert.Equal(t, ctx, ctx2)

	SkipRateLimit(ctx)
	assert.True(t, m.Skipped())

	assert.NotPanics(t, func() { SkipRateLimit(context.Background()) })
}

var _ model.KeyValueStore = (*mocks.KeyValueStore)(nil)
