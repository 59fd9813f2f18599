// Package httpapi serves orbit scenes over HTTP: JSON, SVG and a websocket
// stream of body positions.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/signalsfoundry/orbiter/internal/logging"
	"github.com/signalsfoundry/orbiter/internal/observability"
	"github.com/signalsfoundry/orbiter/internal/orbiter"
)

// Config holds HTTP API limits.
type Config struct {
	RateLimit     float64 // requests per second per client; <= 0 disables limiting
	RateBurst     int
	TrustProxy    bool
	FrameInterval time.Duration // websocket frame spacing
	MaxFrames     int           // upper bound on frames per stream; 0 is unlimited
	CatalogWrites bool          // enables POST and DELETE on /api/v1/bodies
}

// DefaultConfig is used for zero fields of Config.
var DefaultConfig = Config{
	RateLimit:     10,
	RateBurst:     20,
	FrameInterval: 50 * time.Millisecond,
}

type api struct {
	svc      *orbiter.Service
	cfg      Config
	log      logging.Logger
	anim     *observability.AnimationCollector
	upgrader websocket.Upgrader
}

// NewHandler builds the API mux with request logging, metrics and rate
// limiting applied. Either collector may be nil.
func NewHandler(svc *orbiter.Service, cfg Config, log logging.Logger, orbits *observability.OrbitCollector, anim *observability.AnimationCollector) http.Handler {
	if log == nil {
		log = logging.Noop()
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = DefaultConfig.FrameInterval
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = DefaultConfig.RateBurst
	}

	a := &api{
		svc:  svc,
		cfg:  cfg,
		log:  log,
		anim: anim,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	mux := http.NewServeMux()
	route := func(pattern, name string, h http.HandlerFunc) {
		mux.Handle(pattern, orbits.InstrumentHandler(name, h))
	}
	route("GET /api/v1/orbit", "orbit", a.handleOrbit)
	route("GET /orbit.svg", "orbit_svg", a.handleSVG)
	route("GET /api/v1/bodies", "bodies", a.handleBodies)
	route("GET /api/v1/bodies/{id}", "body", a.handleBody)
	if cfg.CatalogWrites {
		route("POST /api/v1/bodies", "bodies_add", a.handleAddBody)
		route("DELETE /api/v1/bodies/{id}", "body_remove", a.handleRemoveBody)
	}
	route("GET /api/v1/orbit/stream", "orbit_stream", a.handleStream)
	mux.HandleFunc("GET /healthz", handleHealthz)
	if orbits != nil {
		mux.Handle("GET /metrics", orbits.Handler())
	}

	var handler http.Handler = mux
	if cfg.RateLimit > 0 {
		handler = NewIPRateLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst).Middleware(cfg.TrustProxy)(handler)
	}
	handler = requestLogger(log)(handler)
	return handler
}

// NewServer wraps NewHandler in an http.Server with conservative timeouts.
// WriteTimeout is left unset because streams are long-lived.
func NewServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
