package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/orbiter/internal/health"
	"github.com/signalsfoundry/orbiter/internal/httpapi"
	"github.com/signalsfoundry/orbiter/internal/logging"
	"github.com/signalsfoundry/orbiter/internal/observability"
	"github.com/signalsfoundry/orbiter/internal/orbiter"
)

// Config controls the server. Flags default to ORBITER_* environment
// variables where one is named.
type Config struct {
	HTTPAddress   string
	GRPCAddress   string
	RateLimit     float64
	RateBurst     int
	TrustProxy    bool
	FrameInterval time.Duration
	MaxFrames     int
	ProbeInterval time.Duration
	CatalogWrites bool
}

func parseFlags(args []string) (Config, error) {
	var cfg Config
	fs := flag.NewFlagSet("orbit-server", flag.ContinueOnError)
	fs.StringVar(&cfg.HTTPAddress, "http-addr", envString("ORBITER_HTTP_ADDR", ":8080"), "HTTP address for the API and /metrics")
	fs.StringVar(&cfg.GRPCAddress, "grpc-addr", envString("ORBITER_GRPC_ADDR", ":50051"), "TCP address of the gRPC health server")
	fs.Float64Var(&cfg.RateLimit, "rate-limit", envFloat("ORBITER_RATE_LIMIT", httpapi.DefaultConfig.RateLimit), "requests per second per client (0 disables)")
	fs.IntVar(&cfg.RateBurst, "rate-burst", envInt("ORBITER_RATE_BURST", httpapi.DefaultConfig.RateBurst), "burst size per client")
	fs.BoolVar(&cfg.TrustProxy, "trust-proxy", envBool("ORBITER_TRUST_PROXY"), "take client addresses from X-Forwarded-For")
	fs.DurationVar(&cfg.FrameInterval, "frame-interval", httpapi.DefaultConfig.FrameInterval, "websocket frame spacing")
	fs.IntVar(&cfg.MaxFrames, "max-frames", envInt("ORBITER_MAX_FRAMES", 0), "frames per websocket stream (0 is unlimited)")
	fs.BoolVar(&cfg.CatalogWrites, "catalog-writes", envBool("ORBITER_CATALOG_WRITES"), "allow adding and removing catalog bodies over HTTP")
	fs.DurationVar(&cfg.ProbeInterval, "probe-interval", 30*time.Second, "how often the health probe recomputes a scene")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	log := logging.NewFromEnv(os.Stdout)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv("orbit-server"), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	httpLis, err := net.Listen("tcp", cfg.HTTPAddress)
	if err != nil {
		log.Error(ctx, "failed to listen for HTTP", logging.String("addr", cfg.HTTPAddress), logging.Err(err))
		os.Exit(1)
	}
	grpcLis, err := net.Listen("tcp", cfg.GRPCAddress)
	if err != nil {
		log.Error(ctx, "failed to listen for gRPC", logging.String("addr", cfg.GRPCAddress), logging.Err(err))
		os.Exit(1)
	}

	if err := run(ctx, cfg, log, prometheus.NewRegistry(), httpLis, grpcLis); err != nil {
		log.Error(ctx, "server exited", logging.Err(err))
		stop()
		os.Exit(1)
	}
}

// run serves HTTP and gRPC on the given listeners until ctx is cancelled.
func run(ctx context.Context, cfg Config, log logging.Logger, reg *prometheus.Registry, httpLis, grpcLis net.Listener) error {
	orbits, err := observability.NewOrbitCollector(reg)
	if err != nil {
		return err
	}
	anim, err := observability.NewAnimationCollector(reg)
	if err != nil {
		return err
	}

	svc := orbiter.NewService(log, orbiter.WithMetricsRecorder(orbits))
	defer svc.WatchCatalog(ctx)()
	handler := httpapi.NewHandler(svc, httpapi.Config{
		RateLimit:     cfg.RateLimit,
		RateBurst:     cfg.RateBurst,
		TrustProxy:    cfg.TrustProxy,
		FrameInterval: cfg.FrameInterval,
		MaxFrames:     cfg.MaxFrames,
		CatalogWrites: cfg.CatalogWrites,
	}, log, orbits, anim)
	httpSrv := httpapi.NewServer(httpLis.Addr().String(), handler)

	hs := health.NewServer(log, orbits)
	if err := hs.Probe(ctx, svc); err != nil {
		log.Warn(ctx, "initial scene probe failed", logging.Err(err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "serving HTTP API", logging.String("addr", httpLis.Addr().String()))
		if err := httpSrv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info(gctx, "serving gRPC health", logging.String("addr", grpcLis.Addr().String()))
		return hs.GRPC.Serve(grpcLis)
	})
	g.Go(func() error {
		probeLoop(gctx, hs, svc, cfg.ProbeInterval)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down orbit server")
		hs.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func probeLoop(ctx context.Context, hs *health.Server, svc *orbiter.Service, interval time.Duration) {
	if interval <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = hs.Probe(ctx, svc)
		}
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envBool(key string) bool {
	v, _ := strconv.ParseBool(os.Getenv(key))
	return v
}
