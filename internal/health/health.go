// Package health pings the service dependencies and summarizes their state.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/dtroode/beatstream-server/internal/logger"
)

// Status is the overall state of the service.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// Pinger is a dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Component is a named dependency. A failing critical component takes the
// service down; any other failure only degrades it.
type Component struct {
	Name     string
	Pinger   Pinger
	Critical bool
}

// Report is the result of one round of pings.
type Report struct {
	Status     Status            `json:"status"`
	Components map[string]string `json:"components"`
	CheckedAt  time.Time         `json:"checkedAt"`
}

// Checker pings every component and remembers the last report.
type Checker struct {
	components []Component
	timeout    time.Duration
	logger     *logger.Logger

	mu   sync.RWMutex
	last Report
}

// NewChecker creates a Checker. Each ping is bounded by timeout.
func NewChecker(logger *logger.Logger, timeout time.Duration, components ...Component) *Checker {
	return &Checker{
		components: components,
		timeout:    timeout,
		logger:     logger,
		last:       Report{Status: StatusOK, Components: map[string]string{}},
	}
}

// Check pings all components concurrently.
func (c *Checker) Check(ctx context.Context) Report {
	results := make([]error, len(c.components))

	var wg sync.WaitGroup
	for i, comp := range c.components {
		wg.Add(1)
		go func(i int, comp Component) {
			defer wg.Done()
			pingCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			results[i] = comp.Pinger.Ping(pingCtx)
		}(i, comp)
	}
	wg.Wait()

	report := Report{Status: StatusOK, Components: make(map[string]string, len(c.components)), CheckedAt: time.Now()}
	for i, comp := range c.components {
		if results[i] == nil {
			report.Components[comp.Name] = "up"
			continue
		}

		report.Components[comp.Name] = "down"
		c.logger.WarnContext(ctx, "health check failed", "component", comp.Name, "error", results[i].Error())
		if comp.Critical {
			report.Status = StatusDown
		} else if report.Status == StatusOK {
			report.Status = StatusDegraded
		}
	}

	c.mu.Lock()
	c.last = report
	c.mu.Unlock()

	return report
}

// Last returns the most recent report.
func (c *Checker) Last() Report {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}
