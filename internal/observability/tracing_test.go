package observability

import "testing"

func TestTracingConfigFromEnv(t *testing.T) {
	t.Setenv("ORBITER_TRACING_ENABLED", "TRUE")
	t.Setenv("ORBITER_TRACING_EXPORTER", "OTLP")
	t.Setenv("ORBITER_TRACING_SAMPLE_RATIO", "0.25")
	t.Setenv("ORBITER_OTLP_ENDPOINT", "collector:4317")

	cfg := TracingConfigFromEnv("orbit-server")
	if !cfg.Enabled || cfg.Exporter != "otlp" || cfg.Endpoint != "collector:4317" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.ServiceName != "orbit-server" || cfg.SampleRatio != 0.25 {
		t.Fatalf("cfg = %+v", cfg)
	}

	t.Setenv("ORBITER_TRACING_SAMPLE_RATIO", "3")
	if got := TracingConfigFromEnv("x").SampleRatio; got != 1 {
		t.Fatalf("out-of-range ratio gave %v, want 1", got)
	}
}

func TestOrbitAttributes(t *testing.T) {
	attrs := OrbitAttributes(5.2, 0.048, 0.2)
	want := map[string]float64{
		"orbit.semi_major_axis_au": 5.2,
		"orbit.eccentricity":       0.048,
		"orbit.animation_rate":     0.2,
	}
	if len(attrs) != len(want) {
		t.Fatalf("got %d attributes, want %d", len(attrs), len(want))
	}
	for _, kv := range attrs {
		if v, ok := want[string(kv.Key)]; !ok || kv.Value.AsFloat64() != v {
			t.Fatalf("unexpected attribute %s=%v", kv.Key, kv.Value.AsFloat64())
		}
	}
}
