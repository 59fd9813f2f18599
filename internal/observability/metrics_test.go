package observability

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/orbiter/core"
)

func TestObserveScaleRecordsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewOrbitCollector(reg)
	if err != nil {
		t.Fatalf("NewOrbitCollector: %v", err)
	}

	bar, err := core.SelectScaleReference(2, 36, 180)
	collector.ObserveScale(bar, err)
	_, err = core.SelectScaleReference(1e-40, 36, 180)
	collector.ObserveScale(core.ScaleBar{}, err)
	_, err = core.SelectScaleReference(0, 36, 180)
	collector.ObserveScale(core.ScaleBar{}, err)

	for outcome, want := range map[string]float64{"ok": 1, "out_of_range": 1, "invalid": 1} {
		if got := testutil.ToFloat64(collector.ScaleSelections.WithLabelValues(outcome)); got != want {
			t.Fatalf("orbit_scale_selections_total{outcome=%q} = %v, want %v", outcome, got, want)
		}
	}
	if got := testutil.ToFloat64(collector.ScaleReference); got != 50 {
		t.Fatalf("orbit_scale_reference_au = %v, want 50", got)
	}
	if count := histogramSampleCount(t, reg, "orbit_scale_search_steps", nil); count != 1 {
		t.Fatalf("orbit_scale_search_steps sample_count = %d, want 1", count)
	}
}

func TestObserveGeometry(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewOrbitCollector(reg)
	if err != nil {
		t.Fatalf("NewOrbitCollector: %v", err)
	}
	_, err = core.ComputeGeometry(core.OrbitalElements{SemiMajorAxis: 1, Eccentricity: 1}, core.DefaultCanvasFrame)
	collector.ObserveGeometry(err)
	collector.ObserveGeometry(nil)
	collector.ObserveGeometry(nil)

	if got := testutil.ToFloat64(collector.GeometryComputations.WithLabelValues("invalid")); got != 1 {
		t.Fatalf("invalid computations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.GeometryComputations.WithLabelValues("ok")); got != 2 {
		t.Fatalf("ok computations = %v, want 2", got)
	}
}

func TestObserveCatalogChange(t *testing.T) {
	collector, err := NewOrbitCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewOrbitCollector: %v", err)
	}
	collector.ObserveCatalogChange("added")
	collector.ObserveCatalogChange("added")
	collector.ObserveCatalogChange("removed")

	if got := testutil.ToFloat64(collector.CatalogChanges.WithLabelValues("added")); got != 2 {
		t.Fatalf("added = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.CatalogChanges.WithLabelValues("removed")); got != 1 {
		t.Fatalf("removed = %v, want 1", got)
	}
}

func TestInstrumentHandlerRecordsRouteAndCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewOrbitCollector(reg)
	if err != nil {
		t.Fatalf("NewOrbitCollector: %v", err)
	}

	h := collector.InstrumentHandler("orbit", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad", http.StatusBadRequest)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/orbit", nil))

	if got := testutil.ToFloat64(collector.HTTPRequests.WithLabelValues("orbit", "400")); got != 1 {
		t.Fatalf("orbit_http_requests_total = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "orbit_http_request_duration_seconds", map[string]string{"route": "orbit"}); count != 1 {
		t.Fatalf("orbit_http_request_duration_seconds sample_count = %d, want 1", count)
	}
}

func TestUnaryInterceptorRecordsErrorCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewOrbitCollector(reg)
	if err != nil {
		t.Fatalf("NewOrbitCollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	_, _ = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.NotFound, "unknown service")
	})
	_, _ = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		time.Sleep(time.Millisecond)
		return "ok", nil
	})

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("Health", "Check", "NotFound")); got != 1 {
		t.Fatalf("orbit_grpc_requests_total NotFound = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("Health", "Check", "OK")); got != 1 {
		t.Fatalf("orbit_grpc_requests_total OK = %v, want 1", got)
	}
}

func TestRegisterTwiceReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewOrbitCollector(reg)
	if err != nil {
		t.Fatalf("NewOrbitCollector: %v", err)
	}
	second, err := NewOrbitCollector(reg)
	if err != nil {
		t.Fatalf("second NewOrbitCollector: %v", err)
	}
	first.ObserveGeometry(nil)
	if got := testutil.ToFloat64(second.GeometryComputations.WithLabelValues("ok")); got != 1 {
		t.Fatalf("second collector does not share counter: %v", got)
	}
}

func TestMetricsHandlerExposesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewOrbitCollector(reg)
	if err != nil {
		t.Fatalf("NewOrbitCollector: %v", err)
	}
	anim, err := NewAnimationCollector(reg)
	if err != nil {
		t.Fatalf("NewAnimationCollector: %v", err)
	}
	collector.ObserveGeometry(nil)
	collector.ObserveScale(core.ScaleBar{ReferenceDistanceAU: 5, LengthPx: 100, Steps: 1}, nil)
	anim.ObserveFrame("stream", 2*time.Millisecond)
	anim.StreamOpened()

	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"orbit_geometry_computations_total",
		"orbit_scale_selections_total",
		"orbit_scale_reference_au 5",
		"orbit_animation_frames_total",
		"orbit_animation_active_streams 1",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
}

func TestAnimationCollectorStreams(t *testing.T) {
	anim, err := NewAnimationCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewAnimationCollector: %v", err)
	}
	anim.StreamOpened()
	anim.StreamOpened()
	anim.StreamClosed()
	if got := testutil.ToFloat64(anim.ActiveStreams); got != 1 {
		t.Fatalf("active streams = %v, want 1", got)
	}

	var nilCollector *AnimationCollector
	nilCollector.ObserveFrame("term", time.Millisecond)
	nilCollector.StreamOpened()
}

func TestInitTracingStdout(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitTracing(context.Background(), TracingConfig{
		Enabled:     true,
		ServiceName: "orbiter-test",
		Exporter:    "stdout",
		SampleRatio: 1,
		Writer:      &buf,
	}, nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	_, span := StartSpan(context.Background(), "test-span")
	span.End()
	ShutdownWithTimeout(context.Background(), shutdown, nil)

	if !strings.Contains(buf.String(), "test-span") {
		t.Fatalf("span not exported: %q", buf.String())
	}

	if _, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Exporter: "carrier-pigeon"}, nil); err == nil {
		t.Fatalf("expected error for unsupported exporter")
	}
	if _, err := InitTracing(context.Background(), TracingConfig{}, nil); err != nil {
		t.Fatalf("disabled tracing: %v", err)
	}
}

func TestSplitMethod(t *testing.T) {
	svc, method := SplitMethod("/grpc.health.v1.Health/Watch")
	if svc != "Health" || method != "Watch" {
		t.Fatalf("SplitMethod = %q, %q", svc, method)
	}
	if svc, method := SplitMethod(""); svc != "unknown" || method != "unknown" {
		t.Fatalf("SplitMethod(\"\") = %q, %q", svc, method)
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
