package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AnimationCollector exposes metrics for animated outputs: the terminal
// animator and the websocket frame stream.
type AnimationCollector struct {
	gatherer prometheus.Gatherer

	FramesTotal   *prometheus.CounterVec
	FrameDuration prometheus.Histogram
	ActiveStreams prometheus.Gauge
}

// NewAnimationCollector registers animation metrics against the provided registerer.
func NewAnimationCollector(reg prometheus.Registerer) (*AnimationCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	frames, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orbit_animation_frames_total",
		Help: "Animation frames produced, labeled by sink (term, websocket).",
	}, []string{"sink"}), "orbit_animation_frames_total")
	if err != nil {
		return nil, err
	}

	frameHistogram, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "orbit_animation_frame_duration_seconds",
		Help:    "Time spent producing one animation frame.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	}), "orbit_animation_frame_duration_seconds")
	if err != nil {
		return nil, err
	}

	streams, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orbit_animation_active_streams",
		Help: "Number of websocket clients currently receiving frames.",
	}), "orbit_animation_active_streams")
	if err != nil {
		return nil, err
	}

	return &AnimationCollector{
		gatherer:      gatherer,
		FramesTotal:   frames,
		FrameDuration: frameHistogram,
		ActiveStreams: streams,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *AnimationCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveFrame records one produced frame and how long it took.
func (c *AnimationCollector) ObserveFrame(sink string, d time.Duration) {
	if c == nil {
		return
	}
	if c.FramesTotal != nil {
		c.FramesTotal.WithLabelValues(sink).Inc()
	}
	if c.FrameDuration != nil {
		c.FrameDuration.Observe(d.Seconds())
	}
}

// StreamOpened increments the active stream gauge.
func (c *AnimationCollector) StreamOpened() {
	if c == nil || c.ActiveStreams == nil {
		return
	}
	c.ActiveStreams.Inc()
}

// StreamClosed decrements the active stream gauge.
func (c *AnimationCollector) StreamClosed() {
	if c == nil || c.ActiveStreams == nil {
		return
	}
	c.ActiveStreams.Dec()
}
