package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dtroode/beatstream-server/internal/testutil"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

var (
	up   = pingFunc(func(context.Context) error { return nil })
	down = pingFunc(func(context.Context) error { return errors.New("unreachable") })
)

func TestChecker_Check(t *testing.T) {
	tests := []struct {
		name       string
		components []Component
		want       Status
	}{
		{
			name:       "all up",
			components: []Component{{Name: "store", Pinger: up}, {Name: "database", Pinger: up, Critical: true}},
			want:       StatusOK,
		},
		{
			name:       "store down degrades",
			components: []Component{{Name: "store", Pinger: down}, {Name: "database", Pinger: up, Critical: true}},
			want:       StatusDegraded,
		},
		{
			name:       "database down",
			components: []Component{{Name: "store", Pinger: down}, {Name: "database", Pinger: down, Critical: true}},
			want:       StatusDown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker(testutil.MakeNoopLogger(), time.Second, tt.components...)
			report := c.Check(context.Background())

			assert.Equal(t, tt.want, report.Status)
			assert.Len(t, report.Components, len(tt.components))
			assert.Equal(t, report, c.Last())
		})
	}
}

func TestChecker_PingTimeout(t *testing.T) {
	slow := pingFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	c := NewChecker(testutil.MakeNoopLogger(), 20*time.Millisecond, Component{Name: "store", Pinger: slow})

	report := c.Check(context.Background())
	assert.Equal(t, "down", report.Components["store"])
}

func TestChecker_LastBeforeCheck(t *testing.T) {
	c := NewChecker(testutil.MakeNoopLogger(), time.Second)
	assert.Equal(t, StatusOK, c.Last().Status)
}
