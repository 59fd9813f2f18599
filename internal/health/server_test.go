package health

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"

	"github.com/signalsfoundry/orbiter/core"
	"github.com/signalsfoundry/orbiter/internal/logging"
	"github.com/signalsfoundry/orbiter/internal/observability"
	"github.com/signalsfoundry/orbiter/internal/orbiter"
)

func startServer(t *testing.T) (*Server, healthpb.HealthClient, *observability.OrbitCollector) {
	t.Helper()
	orbits, err := observability.NewOrbitCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewOrbitCollector: %v", err)
	}
	srv := NewServer(logging.Noop(), orbits)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	go func() { _ = srv.GRPC.Serve(lis) }()
	t.Cleanup(srv.Shutdown)

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return srv, healthpb.NewHealthClient(conn), orbits
}

func TestHealthProbe(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv, client, orbits := startServer(t)

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: SceneService})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("status before probe = %v, want NOT_SERVING", resp.GetStatus())
	}

	if err := srv.Probe(ctx, orbiter.NewService(nil, orbiter.WithMetricsRecorder(orbits))); err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if got := testutil.ToFloat64(orbits.GeometryComputations.WithLabelValues("ok")); got != 0 {
		t.Fatalf("probe counted %v geometry computations, want 0", got)
	}
	if got := testutil.ToFloat64(orbits.ScaleReference); got != 0 {
		t.Fatalf("probe set orbit_scale_reference_au to %v", got)
	}
	ctx = metadata.AppendToOutgoingContext(ctx, requestIDMetadataKey, "probe-1")
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: SceneService})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("status after probe = %v, want SERVING", resp.GetStatus())
	}

	if got := testutil.ToFloat64(orbits.RPCRequests.WithLabelValues("Health", "Check", "OK")); got != 2 {
		t.Fatalf("rpc count = %v, want 2", got)
	}
}

func TestHealthProbeFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv, client, _ := startServer(t)

	broken := orbiter.NewService(nil, orbiter.WithFrame(core.CanvasFrame{}))
	if err := srv.Probe(ctx, broken); err == nil {
		t.Fatalf("Probe with an empty frame should fail")
	}
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: SceneService})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("status = %v, want NOT_SERVING", resp.GetStatus())
	}
}

func TestRequestIDInterceptor(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(requestIDMetadataKey, "req-42"))
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	var seen string
	_, err := RequestIDUnaryServerInterceptor(nil)(ctx, nil, info, func(ctx context.Context, _ interface{}) (interface{}, error) {
		seen = logging.RequestIDFromContext(ctx)
		return nil, nil
	})
	if err != nil {
		t.Fatalf("interceptor error: %v", err)
	}
	if seen != "req-42" {
		t.Fatalf("request id = %q, want req-42", seen)
	}
}
