package core

import "math"

// Point is a position on the canvas in pixels. Y grows downwards.
type Point struct {
	X, Y float64
}

// DistanceTo returns the straight-line distance between two points.
func (p Point) DistanceTo(other Point) float64 {
	return math.Hypot(p.X-other.X, p.Y-other.Y)
}

// Add returns p + other.
func (p Point) Add(other Point) Point {
	return Point{X: p.X + other.X, Y: p.Y + other.Y}
}

// Sub returns p - other.
func (p Point) Sub(other Point) Point {
	return Point{X: p.X - other.X, Y: p.Y - other.Y}
}

// Lerp returns the point a fraction t of the way from p to other.
func (p Point) Lerp(other Point, t float64) Point {
	d := other.Sub(p)
	return p.Add(Point{X: d.X * t, Y: d.Y * t})
}

// OrbitalElements are the two shape parameters of the drawn orbit.
type OrbitalElements struct {
	SemiMajorAxis float64 // AU
	Eccentricity  float64 // [0, 1)
}

// Validate checks that the elements describe a closed orbit.
func (e OrbitalElements) Validate() error {
	switch {
	case math.IsNaN(e.SemiMajorAxis) || math.IsInf(e.SemiMajorAxis, 0):
		return invalid("semi_major_axis", e.SemiMajorAxis, "must be finite")
	case e.SemiMajorAxis <= 0:
		return invalid("semi_major_axis", e.SemiMajorAxis, "must be positive")
	case math.IsNaN(e.Eccentricity) || math.IsInf(e.Eccentricity, 0):
		return invalid("eccentricity", e.Eccentricity, "must be finite")
	case e.Eccentricity < 0:
		return invalid("eccentricity", e.Eccentricity, "must not be negative")
	case e.Eccentricity >= 1:
		return invalid("eccentricity", e.Eccentricity, "must be below 1 for a closed orbit")
	}
	return nil
}

// CanvasFrame holds the static layout of the drawing surface in pixels.
type CanvasFrame struct {
	Width      float64
	Height     float64
	Padding    float64
	SunOffsetX float64 // shift of the sun to the left of the canvas center
}

// DefaultCanvasFrame is the 616×616 layout the diagram was designed for.
var DefaultCanvasFrame = CanvasFrame{
	Width:      616,
	Height:     616,
	Padding:    20,
	SunOffsetX: 50,
}

// Center returns the center of the padded drawing area.
func (f CanvasFrame) Center() Point {
	return Point{
		X: (f.Width-2*f.Padding)/2 + f.Padding,
		Y: (f.Height-2*f.Padding)/2 + f.Padding,
	}
}

// Sun returns where the central body is drawn.
func (f CanvasFrame) Sun() Point {
	c := f.Center()
	return Point{X: c.X - f.SunOffsetX, Y: c.Y}
}

// Validate checks that the frame leaves room to draw an orbit around the sun.
func (f CanvasFrame) Validate() error {
	for _, field := range []struct {
		name string
		v    float64
	}{
		{"width", f.Width},
		{"height", f.Height},
		{"padding", f.Padding},
		{"sun_offset_x", f.SunOffsetX},
	} {
		if math.IsNaN(field.v) || math.IsInf(field.v, 0) {
			return invalid(field.name, field.v, "must be finite")
		}
	}
	switch {
	case f.Width <= 0:
		return invalid("width", f.Width, "must be positive")
	case f.Height <= 0:
		return invalid("height", f.Height, "must be positive")
	case f.Padding < 0:
		return invalid("padding", f.Padding, "must not be negative")
	case 2*f.Padding >= f.Width:
		return invalid("padding", f.Padding, "must be less than half the width")
	case 2*f.Padding >= f.Height:
		return invalid("padding", f.Padding, "must be less than half the height")
	}
	sun := f.Sun()
	if sun.X <= f.Padding || sun.X >= f.Width-f.Padding {
		return invalid("sun_offset_x", f.SunOffsetX, "places the sun outside the padded area")
	}
	return nil
}

// OrbitGeometry is the pixel-space description of one orbit drawing.
type OrbitGeometry struct {
	SemiMajorAxisPx float64
	SemiMinorAxisPx float64
	FocalDistancePx float64

	Center        Point // canvas center
	Sun           Point // occupied focus
	EllipseCenter Point

	AUToPixelScale float64 // pixels per AU
	PeriodMs       float64 // zero when no animation rate was supplied
}

// HasPeriod reports whether an animation period was computed.
func (g OrbitGeometry) HasPeriod() bool { return g.PeriodMs > 0 }

// Periapsis is the point of the orbit closest to the sun (left extreme).
func (g OrbitGeometry) Periapsis() Point {
	return Point{X: g.Sun.X - (g.SemiMajorAxisPx - g.FocalDistancePx), Y: g.Sun.Y}
}

// Apoapsis is the point of the orbit farthest from the sun (right extreme).
func (g OrbitGeometry) Apoapsis() Point {
	return Point{X: g.Sun.X + g.SemiMajorAxisPx + g.FocalDistancePx, Y: g.Sun.Y}
}

// GeometryOption customises ComputeGeometry.
type GeometryOption func(*geometryOptions)

type geometryOptions struct {
	rate        float64
	hasRate     bool
	periodYears float64
}

// WithAnimationRate sets the animation speed in simulated years per second of
// wall-clock time. One Earth orbit then lasts 1000/rate milliseconds.
func WithAnimationRate(yearsPerSecond float64) GeometryOption {
	return func(o *geometryOptions) {
		o.rate = yearsPerSecond
		o.hasRate = true
	}
}

// WithPeriodYears replaces Kepler's a^1.5 with a known orbital period, for
// orbits around a body other than the Sun. It only matters together with
// WithAnimationRate.
func WithPeriodYears(years float64) GeometryOption {
	return func(o *geometryOptions) {
		o.periodYears = years
	}
}

// ComputeGeometry maps orbital elements onto the frame so that the full
// ellipse, periapsis to apoapsis, fits between the horizontal padding lines
// with the sun kept at its fixed offset.
func ComputeGeometry(el OrbitalElements, frame CanvasFrame, opts ...GeometryOption) (OrbitGeometry, error) {
	var o geometryOptions
	for _, opt := range opts {
		opt(&o)
	}
	if err := el.Validate(); err != nil {
		return OrbitGeometry{}, err
	}
	if err := frame.Validate(); err != nil {
		return OrbitGeometry{}, err
	}
	if o.hasRate && (math.IsNaN(o.rate) || math.IsInf(o.rate, 0) || o.rate <= 0) {
		return OrbitGeometry{}, invalid("animation_rate", o.rate, "must be a positive number of years per second")
	}

	if o.periodYears != 0 && (math.IsNaN(o.periodYears) || math.IsInf(o.periodYears, 0) || o.periodYears < 0) {
		return OrbitGeometry{}, invalid("period_years", o.periodYears, "must be a positive number of years")
	}

	a := el.SemiMajorAxis
	e := el.Eccentricity
	usableWidth := frame.Width - 2*frame.Padding
	center := frame.Center()
	sun := frame.Sun()

	b := a * math.Sqrt(1-e*e)
	// a² - b² can come out slightly negative for e close to 0.
	c := math.Sqrt(math.Max(0, a*a-b*b))

	scale := math.Min(
		(sun.X-frame.Padding)/(a-c),
		(usableWidth-sun.X+frame.Padding)/(a+c),
	)

	g := OrbitGeometry{
		SemiMajorAxisPx: a * scale,
		SemiMinorAxisPx: b * scale,
		FocalDistancePx: c * scale,
		Center:          center,
		Sun:             sun,
		EllipseCenter:   Point{X: sun.X + c*scale, Y: sun.Y},
		AUToPixelScale:  scale,
	}
	if o.hasRate {
		if o.periodYears > 0 {
			g.PeriodMs = 1000 / o.rate * o.periodYears
		} else {
			g.PeriodMs = PeriodMs(a, o.rate)
		}
	}
	return g, nil
}

// PeriodMs applies Kepler's third law: an orbit of semi-major axis a (AU)
// lasts a^1.5 Earth years, each of which is 1000/rate ms of animation.
func PeriodMs(semiMajorAxisAU, yearsPerSecond float64) float64 {
	return 1000 / yearsPerSecond * math.Pow(semiMajorAxisAU, 1.5)
}
