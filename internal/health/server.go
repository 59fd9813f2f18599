// Package health runs the gRPC health endpoint of the orbit server.
package health

import (
	"context"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/signalsfoundry/orbiter/internal/logging"
	"github.com/signalsfoundry/orbiter/internal/observability"
	"github.com/signalsfoundry/orbiter/internal/orbiter"
)

// SceneService is the health service name that tracks whether scenes can be
// computed.
const SceneService = "orbiter.Scene"

// Server owns the gRPC server and its health registry.
type Server struct {
	GRPC   *grpc.Server
	Health *grpchealth.Server
	log    logging.Logger
}

// NewServer builds a gRPC server with request-id, tracing and metrics
// interceptors and registers the standard health service.
func NewServer(log logging.Logger, orbits *observability.OrbitCollector) *Server {
	if log == nil {
		log = logging.Noop()
	}
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			RequestIDUnaryServerInterceptor(log),
			TracingUnaryServerInterceptor(),
			orbits.UnaryServerInterceptor(),
		),
	)
	hs := grpchealth.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(SceneService, healthpb.HealthCheckResponse_NOT_SERVING)

	return &Server{GRPC: srv, Health: hs, log: log}
}

// Probe computes a reference scene and marks SceneService serving or not
// serving accordingly. The probe scene is kept out of svc's metrics.
func (s *Server) Probe(ctx context.Context, svc *orbiter.Service) error {
	_, err := svc.WithoutMetrics().SetOrbit(ctx, orbiter.Input{SemiMajorAxis: 1, Eccentricity: 0.0167})
	status := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		s.log.Warn(ctx, "scene probe failed", logging.Err(err))
	}
	s.Health.SetServingStatus(SceneService, status)
	return err
}

// Shutdown marks every service as not serving and stops the server.
func (s *Server) Shutdown() {
	s.Health.Shutdown()
	s.GRPC.GracefulStop()
}
