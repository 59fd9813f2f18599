// Package orbiter turns orbital elements into a drawable scene: pixel
// geometry, a scale bar and the labels the diagram shows.
package orbiter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/signalsfoundry/orbiter/core"
	"github.com/signalsfoundry/orbiter/internal/logging"
	"github.com/signalsfoundry/orbiter/internal/observability"
	"github.com/signalsfoundry/orbiter/internal/tle"
	"github.com/signalsfoundry/orbiter/kb"
	"github.com/signalsfoundry/orbiter/model"
)

// DefaultAnimationRate animates one Earth year in five seconds.
const DefaultAnimationRate = 0.2

// DefaultTLEOrbitDuration is how long one satellite orbit takes on screen
// when no animation rate is given.
const DefaultTLEOrbitDuration = 5 * time.Second

// ErrBodyNotFound is re-exported so callers need not import kb.
var ErrBodyNotFound = kb.ErrBodyNotFound

// MetricsRecorder receives the outcome of each scene computation.
type MetricsRecorder interface {
	ObserveGeometry(err error)
	ObserveScale(bar core.ScaleBar, err error)
}

// CatalogRecorder is implemented by metrics recorders that also count
// catalog changes.
type CatalogRecorder interface {
	ObserveCatalogChange(change string)
}

// Input is one orbit request.
type Input struct {
	SemiMajorAxis float64 // AU
	Eccentricity  float64
	AnimationRate float64 // simulated years per second; zero selects DefaultAnimationRate
	PeriodYears   float64 // optional; overrides Kepler's law for non-solar central bodies
	Motion        core.MotionKind

	// Body supplies labels and color. Its elements are ignored.
	Body model.Body
}

// ParseInput converts form or flag values into an Input. An empty rate
// selects the default.
func ParseInput(semiMajorAxis, eccentricity, rate string) (Input, error) {
	var in Input
	var err error
	if in.SemiMajorAxis, err = parseFloat("semi_major_axis", semiMajorAxis); err != nil {
		return Input{}, err
	}
	if in.Eccentricity, err = parseFloat("eccentricity", eccentricity); err != nil {
		return Input{}, err
	}
	if strings.TrimSpace(rate) != "" {
		if in.AnimationRate, err = parseFloat("animation_rate", rate); err != nil {
			return Input{}, err
		}
	}
	return in, nil
}

func parseFloat(field, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, &core.InvalidParameterError{Field: field, Value: s, Reason: "not a number"}
	}
	return v, nil
}

// Scene is everything needed to draw one orbit.
type Scene struct {
	Frame    core.CanvasFrame
	Elements core.OrbitalElements
	Geometry core.OrbitGeometry

	// ScaleBar is nil when no canonical distance fits the band.
	ScaleBar *core.ScaleBar

	CentralBodyLabel string
	BodyName         string
	ScaleLabel       string
	Color            string
	Motion           core.MotionKind
}

// MotionModel returns the position model for the orbiting body.
func (s Scene) MotionModel() core.MotionModel {
	return core.NewMotionModel(s.Geometry, s.Motion)
}

// Service computes scenes against a fixed canvas layout.
type Service struct {
	frame   core.CanvasFrame
	band    core.ScaleBand
	catalog *kb.Catalog
	metrics MetricsRecorder
	log     logging.Logger
}

// Option customises Service construction.
type Option func(*Service)

// WithFrame overrides core.DefaultCanvasFrame.
func WithFrame(f core.CanvasFrame) Option {
	return func(s *Service) {
		s.frame = f
	}
}

// WithScaleBand overrides core.DefaultScaleBand.
func WithScaleBand(b core.ScaleBand) Option {
	return func(s *Service) {
		s.band = b
	}
}

// WithCatalog replaces the built-in solar system catalog.
func WithCatalog(c *kb.Catalog) Option {
	return func(s *Service) {
		s.catalog = c
	}
}

// WithMetricsRecorder attaches a metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService builds a Service with the default frame, band and catalog.
func NewService(log logging.Logger, opts ...Option) *Service {
	if log == nil {
		log = logging.Noop()
	}
	s := &Service{
		frame: core.DefaultCanvasFrame,
		band:  core.DefaultScaleBand,
		log:   log,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.catalog == nil {
		s.catalog = kb.NewSolarSystemCatalog()
	}
	return s
}

// Frame returns the canvas layout scenes are computed against.
func (s *Service) Frame() core.CanvasFrame { return s.frame }

// Catalog exposes the body catalog.
func (s *Service) Catalog() *kb.Catalog { return s.catalog }

// WithoutMetrics returns a copy of s that records nothing, for internal
// computations such as health probes.
func (s *Service) WithoutMetrics() *Service {
	c := *s
	c.metrics = nil
	return &c
}

// WatchCatalog logs every catalog change and counts it when the metrics
// recorder is a CatalogRecorder. The returned func stops watching.
func (s *Service) WatchCatalog(ctx context.Context) (stop func()) {
	rec, _ := s.metrics.(CatalogRecorder)
	return s.catalog.Subscribe(func(ev kb.Event) {
		s.log.Info(ctx, "catalog changed",
			logging.String("change", ev.Type.String()),
			logging.String("body_id", ev.Body.ID),
			logging.Orbit(ev.Body.SemiMajorAxis, ev.Body.Eccentricity),
		)
		if rec != nil {
			rec.ObserveCatalogChange(ev.Type.String())
		}
	})
}

// SetOrbit validates the input, maps it onto the canvas and picks a scale
// bar. A scale bar that cannot be found is not an error: the scene is
// returned without one.
func (s *Service) SetOrbit(ctx context.Context, in Input) (Scene, error) {
	rate := in.AnimationRate
	if rate == 0 {
		rate = DefaultAnimationRate
	}
	ctx, span := observability.StartSpan(ctx, "orbiter.SetOrbit",
		observability.OrbitAttributes(in.SemiMajorAxis, in.Eccentricity, rate)...)
	defer span.End()
	log := logging.FromContext(ctx, s.log)

	el := core.OrbitalElements{SemiMajorAxis: in.SemiMajorAxis, Eccentricity: in.Eccentricity}
	opts := []core.GeometryOption{core.WithAnimationRate(rate)}
	if in.PeriodYears != 0 {
		opts = append(opts, core.WithPeriodYears(in.PeriodYears))
	}

	g, err := core.ComputeGeometry(el, s.frame, opts...)
	s.observeGeometry(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid orbit")
		return Scene{}, err
	}

	scene := Scene{
		Frame:            s.frame,
		Elements:         el,
		Geometry:         g,
		CentralBodyLabel: "Sun",
		BodyName:         in.Body.Name,
		Color:            in.Body.Color,
		Motion:           in.Motion,
	}
	if in.Body.CentralBody != "" {
		scene.CentralBodyLabel = in.Body.CentralBody
	}
	if scene.Color == "" {
		scene.Color = "lightblue"
	}

	bar, err := s.band.Select(g.AUToPixelScale)
	s.observeScale(bar, err)
	switch {
	case err == nil:
		scene.ScaleBar = &bar
		scene.ScaleLabel = "Scale: " + bar.Label()
		span.SetAttributes(attribute.Float64("orbit.scale_reference_au", bar.ReferenceDistanceAU))
	case errors.Is(err, core.ErrScaleOutOfRange):
		log.Warn(ctx, "no scale bar fits the band",
			logging.Orbit(el.SemiMajorAxis, el.Eccentricity),
			logging.Float("au_to_pixel_scale", g.AUToPixelScale),
			logging.Err(err),
		)
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "scale selection failed")
		return Scene{}, fmt.Errorf("select scale bar: %w", err)
	}

	log.Debug(ctx, "orbit set",
		logging.Orbit(el.SemiMajorAxis, el.Eccentricity),
		logging.Float("au_to_pixel_scale", g.AUToPixelScale),
		logging.Float("period_ms", g.PeriodMs),
		logging.String("scale", scene.ScaleLabel),
	)
	return scene, nil
}

// SetOrbitForBody looks up a catalog body and draws its orbit.
func (s *Service) SetOrbitForBody(ctx context.Context, id string, rate float64, motion core.MotionKind) (Scene, error) {
	b, err := s.catalog.Get(id)
	if err != nil {
		return Scene{}, err
	}
	return s.SetOrbit(ctx, Input{
		SemiMajorAxis: b.SemiMajorAxis,
		Eccentricity:  b.Eccentricity,
		AnimationRate: rate,
		Motion:        motion,
		Body:          b,
	})
}

// SetOrbitFromTLE draws a satellite orbit around Earth. Without a rate one
// orbit lasts DefaultTLEOrbitDuration.
func (s *Service) SetOrbitFromTLE(ctx context.Context, name, line1, line2 string, at time.Time, rate float64, motion core.MotionKind) (Scene, error) {
	el, err := tle.FromTLE(line1, line2, at)
	if err != nil {
		return Scene{}, err
	}
	if rate == 0 {
		rate = el.PeriodYears() / DefaultTLEOrbitDuration.Seconds()
	}
	return s.SetOrbit(ctx, Input{
		SemiMajorAxis: el.SemiMajorAxis,
		Eccentricity:  el.Eccentricity,
		AnimationRate: rate,
		PeriodYears:   el.PeriodYears(),
		Motion:        motion,
		Body: model.Body{
			Name:        name,
			Kind:        model.BodyKindSatellite,
			CentralBody: "Earth",
		},
	})
}

func (s *Service) observeGeometry(err error) {
	if s.metrics != nil {
		s.metrics.ObserveGeometry(err)
	}
}

func (s *Service) observeScale(bar core.ScaleBar, err error) {
	if s.metrics != nil {
		s.metrics.ObserveScale(bar, err)
	}
}
