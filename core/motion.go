package core

import (
	"math"
	"sort"
	"time"
)

// MotionModel places the orbiting body on the drawn ellipse for a given
// amount of elapsed animation time.
type MotionModel interface {
	Position(elapsed time.Duration) Point
}

// MotionKind selects how the body advances along the ellipse.
type MotionKind int

const (
	// MotionArcLength moves the body at constant speed along the path,
	// the way path-following animations interpolate.
	MotionArcLength MotionKind = iota
	// MotionKepler moves the body according to Kepler's equation, fast
	// near periapsis and slow near apoapsis.
	MotionKepler
	// MotionStatic parks the body at periapsis.
	MotionStatic
)

func (k MotionKind) String() string {
	switch k {
	case MotionArcLength:
		return "arc-length"
	case MotionKepler:
		return "kepler"
	case MotionStatic:
		return "static"
	default:
		return "unknown"
	}
}

// ParseMotionKind maps a user-supplied name onto a MotionKind.
func ParseMotionKind(s string) (MotionKind, error) {
	switch s {
	case "", "arc-length", "arclength", "uniform":
		return MotionArcLength, nil
	case "kepler":
		return MotionKepler, nil
	case "static":
		return MotionStatic, nil
	default:
		return 0, invalid("motion", s, "must be arc-length, kepler or static")
	}
}

// StaticMotionModel keeps the body parked at periapsis.
type StaticMotionModel struct {
	At Point
}

// Position for static motion always returns the parked point.
func (m *StaticMotionModel) Position(time.Duration) Point { return m.At }

// pointOnEllipse returns the point at eccentric anomaly E. E=0 is periapsis
// and increasing E moves counter-clockwise on screen.
func pointOnEllipse(g OrbitGeometry, E float64) Point {
	return Point{
		X: g.EllipseCenter.X - g.SemiMajorAxisPx*math.Cos(E),
		Y: g.EllipseCenter.Y + g.SemiMinorAxisPx*math.Sin(E),
	}
}

func phase(elapsed time.Duration, periodMs float64) float64 {
	ms := float64(elapsed) / float64(time.Millisecond)
	u := math.Mod(ms, periodMs) / periodMs
	if u < 0 {
		u++
	}
	return u
}

const arcSamples = 720

// ArcLengthMotion interpolates uniformly over the path length of the ellipse.
type ArcLengthMotion struct {
	geom   OrbitGeometry
	points []Point
	cum    []float64 // cumulative path length at points[i]
}

// NewArcLengthMotion samples the ellipse once so Position is a lookup.
func NewArcLengthMotion(g OrbitGeometry) *ArcLengthMotion {
	m := &ArcLengthMotion{
		geom:   g,
		points: make([]Point, arcSamples+1),
		cum:    make([]float64, arcSamples+1),
	}
	for i := 0; i <= arcSamples; i++ {
		m.points[i] = pointOnEllipse(g, 2*math.Pi*float64(i)/arcSamples)
		if i > 0 {
			m.cum[i] = m.cum[i-1] + m.points[i].DistanceTo(m.points[i-1])
		}
	}
	return m
}

// PathLength returns the sampled circumference in pixels.
func (m *ArcLengthMotion) PathLength() float64 { return m.cum[arcSamples] }

// Position implements MotionModel.
func (m *ArcLengthMotion) Position(elapsed time.Duration) Point {
	target := phase(elapsed, m.geom.PeriodMs) * m.PathLength()
	i := sort.SearchFloat64s(m.cum, target)
	if i == 0 {
		return m.points[0]
	}
	if i > arcSamples {
		return m.points[arcSamples]
	}
	seg := m.cum[i] - m.cum[i-1]
	if seg == 0 {
		return m.points[i]
	}
	return m.points[i-1].Lerp(m.points[i], (target-m.cum[i-1])/seg)
}

// PathFraction returns the share of the circumference covered going from
// periapsis to eccentric anomaly E, for E in [0, 2π].
func (m *ArcLengthMotion) PathFraction(E float64) float64 {
	x := E / (2 * math.Pi) * arcSamples
	i := int(math.Floor(x))
	if i < 0 {
		return 0
	}
	if i >= arcSamples {
		return 1
	}
	t := x - float64(i)
	return (m.cum[i] + (m.cum[i+1]-m.cum[i])*t) / m.PathLength()
}

// KeplerPathFractions samples Kepler motion at n+1 evenly spaced instants
// over one period and returns the path fraction reached at each. The result
// starts at 0, ends at 1 and never decreases.
func KeplerPathFractions(g OrbitGeometry, n int) []float64 {
	if n < 1 {
		n = 1
	}
	arc := NewArcLengthMotion(g)
	e := 0.0
	if g.SemiMajorAxisPx > 0 {
		e = g.FocalDistancePx / g.SemiMajorAxisPx
	}
	out := make([]float64, n+1)
	for k := 1; k < n; k++ {
		M := 2 * math.Pi * float64(k) / float64(n)
		out[k] = math.Max(out[k-1], arc.PathFraction(EccentricAnomaly(M, e)))
	}
	out[n] = 1
	return out
}

// KeplerMotion advances the mean anomaly linearly in time and solves
// Kepler's equation for the drawn position.
type KeplerMotion struct {
	geom         OrbitGeometry
	eccentricity float64
}

// NewKeplerMotion derives the eccentricity back from the pixel geometry.
func NewKeplerMotion(g OrbitGeometry) *KeplerMotion {
	e := 0.0
	if g.SemiMajorAxisPx > 0 {
		e = g.FocalDistancePx / g.SemiMajorAxisPx
	}
	return &KeplerMotion{geom: g, eccentricity: e}
}

// Position implements MotionModel.
func (m *KeplerMotion) Position(elapsed time.Duration) Point {
	M := 2 * math.Pi * phase(elapsed, m.geom.PeriodMs)
	return pointOnEllipse(m.geom, EccentricAnomaly(M, m.eccentricity))
}

// EccentricAnomaly solves M = E - e·sin(E) by Newton-Raphson.
func EccentricAnomaly(meanAnomaly, e float64) float64 {
	if e == 0 {
		return meanAnomaly
	}
	E := meanAnomaly
	if e > 0.8 {
		E = math.Pi
	}
	for i := 0; i < 50; i++ {
		f := E - e*math.Sin(E) - meanAnomaly
		fp := 1 - e*math.Cos(E)
		delta := f / fp
		E -= delta
		if math.Abs(delta) < 1e-12 {
			break
		}
	}
	return E
}

// NewMotionModel chooses a MotionModel for the geometry. Without a period
// the body stays at periapsis.
func NewMotionModel(g OrbitGeometry, kind MotionKind) MotionModel {
	if kind == MotionStatic || !g.HasPeriod() {
		return &StaticMotionModel{At: g.Periapsis()}
	}
	if kind == MotionKepler {
		return NewKeplerMotion(g)
	}
	return NewArcLengthMotion(g)
}
