package soft

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dtroode/beatstream-server/internal/model"
	"github.com/dtroode/beatstream-server/internal/testutil"
)

func TestCall(t *testing.T) {
	ctx := context.Background()
	log := testutil.MakeNoopLogger()

	tests := []struct {
		name   string
		fn     func(ctx context.Context) (int64, error)
		want   int64
		wantOK bool
	}{
		{
			name:   "success returns value",
			fn:     func(ctx context.Context) (int64, error) { return 7, nil },
			want:   7,
			wantOK: true,
		},
		{
			name:   "missing key is not a failure",
			fn:     func(ctx context.Context) (int64, error) { return 0, model.ErrKeyNotFound },
			want:   0,
			wantOK: true,
		},
		{
			name:   "store error returns fallback",
			fn:     func(ctx context.Context) (int64, error) { return 0, assert.AnError },
			want:   -1,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Call(ctx, log, "test", tt.fn, -1)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestDo(t *testing.T) {
	ctx := context.Background()
	log := testutil.MakeNoopLogger()

	assert.True(t, Do(ctx, log, "ok", func(ctx context.Context) error { return nil }))
	assert.False(t, Do(ctx, log, "fail", func(ctx context.Context) error { return assert.AnError }))
}
