package router

import (
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/dtroode/beatstream-server/internal/api/grpc/handler"
	"github.com/dtroode/beatstream-server/internal/api/grpc/middleware"
	"github.com/dtroode/beatstream-server/internal/logger"
)

// Router represents the gRPC router of the operations surface.
// It registers the health service behind the logging and recovery interceptors.
type Router struct {
	health *handler.Health
	logger *logger.Logger
}

// New creates new gRPC Router instance.
func New(health *handler.Health, logger *logger.Logger) *Router {
	return &Router{health: health, logger: logger}
}

// Register builds the gRPC server with all services and interceptors.
func (r *Router) Register() *grpc.Server {
	logging := middleware.NewLogging(r.logger)

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logging.HandleGRPC,
			middleware.Recover(r.logger),
		),
	)
	healthpb.RegisterHealthServer(s, r.health.Server())
	reflection.Register(s)

	return s
}
