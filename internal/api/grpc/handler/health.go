package handler

import (
	"context"

	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dtroode/beatstream-server/internal/health"
	"github.com/dtroode/beatstream-server/internal/logger"
)

// ServiceName is the service name probes can ask about.
const ServiceName = "beatstream"

// HealthChecker reports dependency health.
type HealthChecker interface {
	Check(ctx context.Context) health.Report
}

// Health publishes dependency health on the standard gRPC health service.
type Health struct {
	checker HealthChecker
	server  *grpchealth.Server
	logger  *logger.Logger
}

// NewHealth creates a Health handler. Every service reports SERVING until the
// first Refresh.
func NewHealth(checker HealthChecker, logger *logger.Logger) *Health {
	return &Health{
		checker: checker,
		server:  grpchealth.NewServer(),
		logger:  logger,
	}
}

// Server returns the service to register on a gRPC server.
func (h *Health) Server() healthpb.HealthServer {
	return h.server
}

// Refresh runs a check and publishes the result. Components are published as
// "beatstream.<name>" so probes can watch a single dependency.
func (h *Health) Refresh(ctx context.Context) health.Report {
	report := h.checker.Check(ctx)

	overall := healthpb.HealthCheckResponse_SERVING
	if report.Status == health.StatusDown {
		overall = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.server.SetServingStatus("", overall)
	h.server.SetServingStatus(ServiceName, overall)

	for name, state := range report.Components {
		componentStatus := healthpb.HealthCheckResponse_SERVING
		if state != "up" {
			componentStatus = healthpb.HealthCheckResponse_NOT_SERVING
		}
		h.server.SetServingStatus(ServiceName+"."+name, componentStatus)
	}

	h.logger.DebugContext(ctx, "Health handler: status published", "status", string(report.Status))
	return report
}

// Shutdown marks every service NOT_SERVING so probes drain traffic.
func (h *Health) Shutdown() {
	h.server.Shutdown()
}
