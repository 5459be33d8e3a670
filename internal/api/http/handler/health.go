package handler

import (
	"context"
	"net/http"

	"github.com/dtroode/beatstream-server/internal/api/http/response"
	"github.com/dtroode/beatstream-server/internal/health"
)

// HealthChecker reports dependency health.
type HealthChecker interface {
	Check(ctx context.Context) health.Report
}

// Health handles the health endpoint.
type Health struct {
	checker HealthChecker
	writer  *response.Writer
}

func NewHealth(checker HealthChecker, writer *response.Writer) *Health {
	return &Health{checker: checker, writer: writer}
}

// Check answers 200 while the service can serve requests, 503 otherwise. A
// store outage only degrades the service.
func (h *Health) Check(w http.ResponseWriter, r *http.Request) {
	report := h.checker.Check(r.Context())

	status := http.StatusOK
	if report.Status == health.StatusDown {
		status = http.StatusServiceUnavailable
	}
	h.writer.JSON(w, status, report)
}
