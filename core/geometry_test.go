package core

import (
	"errors"
	"math"
	"testing"
)

const eps = 1e-9

func TestComputeGeometry_CircleKeepsSunAtCenter(t *testing.T) {
	g, err := ComputeGeometry(OrbitalElements{SemiMajorAxis: 1, Eccentricity: 0}, DefaultCanvasFrame)
	if err != nil {
		t.Fatalf("ComputeGeometry error: %v", err)
	}

	// sunX = 308 - 50; min((258-20)/1, (576-258+20)/1) = 238
	if g.Sun != (Point{X: 258, Y: 308}) {
		t.Fatalf("sun = %#v, want (258, 308)", g.Sun)
	}
	if g.AUToPixelScale != 238 {
		t.Fatalf("AUToPixelScale = %v, want 238", g.AUToPixelScale)
	}
	if g.FocalDistancePx != 0 {
		t.Fatalf("FocalDistancePx = %v, want 0 for a circle", g.FocalDistancePx)
	}
	if g.EllipseCenter != g.Sun {
		t.Fatalf("ellipse center %#v should coincide with sun %#v", g.EllipseCenter, g.Sun)
	}
	if g.SemiMajorAxisPx != g.SemiMinorAxisPx {
		t.Fatalf("circle axes differ: a=%v b=%v", g.SemiMajorAxisPx, g.SemiMinorAxisPx)
	}
	if g.Center != (Point{X: 308, Y: 308}) {
		t.Fatalf("center = %#v, want (308, 308)", g.Center)
	}
	if g.HasPeriod() {
		t.Fatalf("expected no period without an animation rate")
	}
}

func TestComputeGeometry_JupiterFitsCanvas(t *testing.T) {
	frame := DefaultCanvasFrame
	g, err := ComputeGeometry(OrbitalElements{SemiMajorAxis: 5.2, Eccentricity: 0.048}, frame)
	if err != nil {
		t.Fatalf("ComputeGeometry error: %v", err)
	}
	if g.AUToPixelScale <= 0 {
		t.Fatalf("AUToPixelScale = %v, want > 0", g.AUToPixelScale)
	}
	assertExtremesInside(t, g, frame)

	// Periapsis is the binding side for low eccentricity.
	if math.Abs(g.Periapsis().X-frame.Padding) > eps {
		t.Fatalf("periapsis x = %v, want it on the padding line %v", g.Periapsis().X, frame.Padding)
	}
}

func TestComputeGeometry_HighEccentricityBindsApoapsis(t *testing.T) {
	frame := DefaultCanvasFrame
	g, err := ComputeGeometry(OrbitalElements{SemiMajorAxis: 1, Eccentricity: 0.9}, frame)
	if err != nil {
		t.Fatalf("ComputeGeometry error: %v", err)
	}
	if got, want := g.Apoapsis().X, frame.Width-frame.Padding; math.Abs(got-want) > eps {
		t.Fatalf("apoapsis x = %v, want %v", got, want)
	}
	if g.EllipseCenter.X <= g.Sun.X {
		t.Fatalf("ellipse center %v should sit right of the sun %v", g.EllipseCenter.X, g.Sun.X)
	}
}

func TestComputeGeometry_Properties(t *testing.T) {
	frames := []CanvasFrame{
		DefaultCanvasFrame,
		{Width: 800, Height: 400, Padding: 10, SunOffsetX: 120},
		{Width: 300, Height: 300, Padding: 0, SunOffsetX: 0},
	}
	axes := []float64{1e-5, 0.39, 1, 5.2, 30.1, 1e4}
	eccs := []float64{0, 1e-9, 0.0167, 0.2, 0.5, 0.9, 0.999}

	for _, frame := range frames {
		for _, a := range axes {
			for _, e := range eccs {
				el := OrbitalElements{SemiMajorAxis: a, Eccentricity: e}
				g, err := ComputeGeometry(el, frame)
				if err != nil {
					t.Fatalf("ComputeGeometry(%+v, %+v) error: %v", el, frame, err)
				}
				if g.SemiMinorAxisPx > g.SemiMajorAxisPx {
					t.Fatalf("%+v: b=%v > a=%v", el, g.SemiMinorAxisPx, g.SemiMajorAxisPx)
				}
				if g.FocalDistancePx < 0 {
					t.Fatalf("%+v: negative focal distance %v", el, g.FocalDistancePx)
				}
				if g.AUToPixelScale <= 0 {
					t.Fatalf("%+v: non-positive scale %v", el, g.AUToPixelScale)
				}
				assertExtremesInside(t, g, frame)

				again, _ := ComputeGeometry(el, frame)
				if again != g {
					t.Fatalf("%+v: repeated call differs: %#v vs %#v", el, again, g)
				}
			}
		}
	}
}

func TestComputeGeometry_Period(t *testing.T) {
	g, err := ComputeGeometry(OrbitalElements{SemiMajorAxis: 4, Eccentricity: 0.1}, DefaultCanvasFrame, WithAnimationRate(0.2))
	if err != nil {
		t.Fatalf("ComputeGeometry error: %v", err)
	}
	// 1000/0.2 ms per year, 4^1.5 = 8 years.
	if math.Abs(g.PeriodMs-40000) > 1e-6 {
		t.Fatalf("PeriodMs = %v, want 40000", g.PeriodMs)
	}
	if !g.HasPeriod() {
		t.Fatalf("HasPeriod() = false, want true")
	}
}

func TestComputeGeometry_PeriodOverride(t *testing.T) {
	g, err := ComputeGeometry(OrbitalElements{SemiMajorAxis: 4.5e-5, Eccentricity: 0.0002}, DefaultCanvasFrame,
		WithAnimationRate(0.001), WithPeriodYears(0.002))
	if err != nil {
		t.Fatalf("ComputeGeometry error: %v", err)
	}
	if math.Abs(g.PeriodMs-2000) > 1e-6 {
		t.Fatalf("PeriodMs = %v, want 2000", g.PeriodMs)
	}
}

func TestComputeGeometry_InvalidParameters(t *testing.T) {
	tests := []struct {
		name  string
		el    OrbitalElements
		frame CanvasFrame
		opts  []GeometryOption
		field string
	}{
		{name: "parabolic", el: OrbitalElements{SemiMajorAxis: 1, Eccentricity: 1}, frame: DefaultCanvasFrame, field: "eccentricity"},
		{name: "hyperbolic", el: OrbitalElements{SemiMajorAxis: 1, Eccentricity: 1.5}, frame: DefaultCanvasFrame, field: "eccentricity"},
		{name: "negative eccentricity", el: OrbitalElements{SemiMajorAxis: 1, Eccentricity: -0.1}, frame: DefaultCanvasFrame, field: "eccentricity"},
		{name: "nan eccentricity", el: OrbitalElements{SemiMajorAxis: 1, Eccentricity: math.NaN()}, frame: DefaultCanvasFrame, field: "eccentricity"},
		{name: "zero axis", el: OrbitalElements{SemiMajorAxis: 0}, frame: DefaultCanvasFrame, field: "semi_major_axis"},
		{name: "negative axis", el: OrbitalElements{SemiMajorAxis: -2}, frame: DefaultCanvasFrame, field: "semi_major_axis"},
		{name: "infinite axis", el: OrbitalElements{SemiMajorAxis: math.Inf(1)}, frame: DefaultCanvasFrame, field: "semi_major_axis"},
		{name: "zero width", el: OrbitalElements{SemiMajorAxis: 1}, frame: CanvasFrame{Height: 100}, field: "width"},
		{name: "padding too wide", el: OrbitalElements{SemiMajorAxis: 1}, frame: CanvasFrame{Width: 100, Height: 300, Padding: 50}, field: "padding"},
		{name: "padding too tall", el: OrbitalElements{SemiMajorAxis: 1}, frame: CanvasFrame{Width: 300, Height: 100, Padding: 60}, field: "padding"},
		{name: "sun off canvas", el: OrbitalElements{SemiMajorAxis: 1}, frame: CanvasFrame{Width: 100, Height: 100, Padding: 10, SunOffsetX: 45}, field: "sun_offset_x"},
		{name: "zero rate", el: OrbitalElements{SemiMajorAxis: 1}, frame: DefaultCanvasFrame, opts: []GeometryOption{WithAnimationRate(0)}, field: "animation_rate"},
		{name: "negative period", el: OrbitalElements{SemiMajorAxis: 1}, frame: DefaultCanvasFrame, opts: []GeometryOption{WithAnimationRate(1), WithPeriodYears(-1)}, field: "period_years"},
		{name: "negative rate", el: OrbitalElements{SemiMajorAxis: 1}, frame: DefaultCanvasFrame, opts: []GeometryOption{WithAnimationRate(-1)}, field: "animation_rate"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ComputeGeometry(tc.el, tc.frame, tc.opts...)
			if !errors.Is(err, ErrInvalidParameter) {
				t.Fatalf("error = %v, want ErrInvalidParameter", err)
			}
			var ipe *InvalidParameterError
			if !errors.As(err, &ipe) {
				t.Fatalf("error %T is not *InvalidParameterError", err)
			}
			if ipe.Field != tc.field {
				t.Fatalf("Field = %q, want %q", ipe.Field, tc.field)
			}
		})
	}
}

func TestPointHelpers(t *testing.T) {
	a := Point{X: 1, Y: 2}
	b := Point{X: 4, Y: 6}
	if d := a.DistanceTo(b); d != 5 {
		t.Fatalf("DistanceTo = %v, want 5", d)
	}
	if got := b.Sub(a); got != (Point{X: 3, Y: 4}) {
		t.Fatalf("Sub = %#v", got)
	}
	if got := a.Add(b); got != (Point{X: 5, Y: 8}) {
		t.Fatalf("Add = %#v", got)
	}
	if got := a.Lerp(b, 0.5); got != (Point{X: 2.5, Y: 4}) {
		t.Fatalf("Lerp = %#v", got)
	}
	if got := a.Lerp(b, 0); got != a {
		t.Fatalf("Lerp(0) = %#v, want %#v", got, a)
	}
}

func assertExtremesInside(t *testing.T, g OrbitGeometry, frame CanvasFrame) {
	t.Helper()
	lo, hi := frame.Padding, frame.Width-frame.Padding
	// Tolerance is relative because tiny axes produce huge scales.
	tol := eps * math.Max(1, frame.Width)
	if x := g.Periapsis().X; x < lo-tol || x > hi+tol {
		t.Fatalf("periapsis x = %v outside [%v, %v]", x, lo, hi)
	}
	if x := g.Apoapsis().X; x < lo-tol || x > hi+tol {
		t.Fatalf("apoapsis x = %v outside [%v, %v]", x, lo, hi)
	}
}
