package observability

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/orbiter/core"
)

// OrbitCollector bundles Prometheus metrics for scene computation and the
// HTTP/gRPC surfaces that serve it.
type OrbitCollector struct {
	gatherer prometheus.Gatherer

	GeometryComputations *prometheus.CounterVec
	ScaleSelections      *prometheus.CounterVec
	ScaleSearchSteps     prometheus.Histogram
	ScaleReference       prometheus.Gauge
	CatalogChanges       *prometheus.CounterVec

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec

	RPCRequests *prometheus.CounterVec
}

// NewOrbitCollector registers orbit metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func NewOrbitCollector(reg prometheus.Registerer) (*OrbitCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	geometry, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orbit_geometry_computations_total",
		Help: "Orbit geometry computations, labeled by outcome (ok, invalid).",
	}, []string{"outcome"}), "orbit_geometry_computations_total")
	if err != nil {
		return nil, err
	}

	selections, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orbit_scale_selections_total",
		Help: "Scale bar selections, labeled by outcome (ok, out_of_range, invalid).",
	}, []string{"outcome"}), "orbit_scale_selections_total")
	if err != nil {
		return nil, err
	}

	steps, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "orbit_scale_search_steps",
		Help:    "Canonical sequence positions visited per successful scale selection.",
		Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64},
	}), "orbit_scale_search_steps")
	if err != nil {
		return nil, err
	}

	reference, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orbit_scale_reference_au",
		Help: "Reference distance of the most recently selected scale bar, in AU.",
	}), "orbit_scale_reference_au")
	if err != nil {
		return nil, err
	}

	catalog, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orbit_catalog_changes_total",
		Help: "Body catalog changes, labeled by change (added, removed).",
	}, []string{"change"}), "orbit_catalog_changes_total")
	if err != nil {
		return nil, err
	}

	requests, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orbit_http_requests_total",
		Help: "Total number of handled HTTP requests, labeled by route and status code.",
	}, []string{"route", "code"}), "orbit_http_requests_total")
	if err != nil {
		return nil, err
	}

	durations, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orbit_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"route"}), "orbit_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	rpcs, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orbit_grpc_requests_total",
		Help: "Total number of handled gRPC calls, labeled by service, method, and gRPC status code.",
	}, []string{"service", "method", "code"}), "orbit_grpc_requests_total")
	if err != nil {
		return nil, err
	}

	return &OrbitCollector{
		gatherer:             gatherer,
		GeometryComputations: geometry,
		ScaleSelections:      selections,
		ScaleSearchSteps:     steps,
		ScaleReference:       reference,
		CatalogChanges:       catalog,
		HTTPRequests:         requests,
		HTTPDurations:        durations,
		RPCRequests:          rpcs,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *OrbitCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveGeometry counts a geometry computation by outcome.
func (c *OrbitCollector) ObserveGeometry(err error) {
	if c == nil || c.GeometryComputations == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "invalid"
	}
	c.GeometryComputations.WithLabelValues(outcome).Inc()
}

// ObserveScale records a scale selection and, on success, its search length
// and reference distance.
func (c *OrbitCollector) ObserveScale(bar core.ScaleBar, err error) {
	if c == nil || c.ScaleSelections == nil {
		return
	}
	switch {
	case err == nil:
		c.ScaleSelections.WithLabelValues("ok").Inc()
		if c.ScaleSearchSteps != nil {
			c.ScaleSearchSteps.Observe(float64(bar.Steps))
		}
		if c.ScaleReference != nil {
			c.ScaleReference.Set(bar.ReferenceDistanceAU)
		}
	case errors.Is(err, core.ErrScaleOutOfRange):
		c.ScaleSelections.WithLabelValues("out_of_range").Inc()
	default:
		c.ScaleSelections.WithLabelValues("invalid").Inc()
	}
}

// ObserveCatalogChange counts one body added to or removed from the catalog.
func (c *OrbitCollector) ObserveCatalogChange(change string) {
	if c == nil || c.CatalogChanges == nil {
		return
	}
	c.CatalogChanges.WithLabelValues(change).Inc()
}

// InstrumentHandler wraps an HTTP handler with request count and latency
// metrics under a fixed route label.
func (c *OrbitCollector) InstrumentHandler(route string, next http.Handler) http.Handler {
	if c == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)

		if c.HTTPRequests != nil {
			c.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
		}
		if c.HTTPDurations != nil {
			c.HTTPDurations.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Hijack passes websocket upgrades through to the underlying connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.code = http.StatusSwitchingProtocols
	return h.Hijack()
}

// UnaryServerInterceptor records request counts for unary RPCs.
func (c *OrbitCollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)

		if c == nil || c.RPCRequests == nil {
			return resp, err
		}

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)
		c.RPCRequests.WithLabelValues(service, method, status.Code(err).String()).Inc()

		return resp, err
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *OrbitCollector) Handler() http.Handler {
	gatherer := c.Gatherer()
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SplitMethod parses a fully-qualified gRPC method name into service and method
// components. It tolerates empty strings and partial paths, returning
// "unknown"/"unknown" when parsing fails.
func SplitMethod(fullMethod string) (string, string) {
	if fullMethod == "" {
		return "unknown", "unknown"
	}
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 2 {
		return "unknown", "unknown"
	}
	service := parts[len(parts)-2]
	method := parts[len(parts)-1]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}

// register adds c to reg. When an equal collector is already registered the
// existing one is returned so collectors can be built twice per registry.
func register[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return c, err
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return c, fmt.Errorf("collector %s already registered with incompatible type", name)
	}
	return existing, nil
}
