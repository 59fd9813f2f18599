package core

import (
	"math"
	"strconv"
)

// MaxScaleSearchSteps bounds the walk over the canonical sequence.
const MaxScaleSearchSteps = 64

// DefaultScaleBand is the on-screen length range, in pixels, a scale bar
// should fall into. The upper bound is five times the lower one so that
// every zoom level has a canonical reference inside it.
var DefaultScaleBand = ScaleBand{MinPx: 36, MaxPx: 180}

// ScaleBand is an open interval of acceptable bar lengths in pixels.
type ScaleBand struct {
	MinPx float64
	MaxPx float64
}

// ScaleBar is a reference distance and its rendered length.
type ScaleBar struct {
	ReferenceDistanceAU float64
	LengthPx            float64
	Steps               int // canonical positions visited before a match
}

// Label renders the reference distance the way the diagram prints it,
// e.g. "50 AU" or "0.05 AU".
func (s ScaleBar) Label() string {
	return strconv.FormatFloat(s.ReferenceDistanceAU, 'f', -1, 64) + " AU"
}

// CanonicalScale returns the round number at position i of the canonical
// sequence ..., 0.05, 0.1, 0.5, 1, 5, 10, 50, ... with CanonicalScale(0) == 1.
// Even positions are powers of ten, odd positions five times a power of ten,
// and the sequence is strictly increasing in i.
func CanonicalScale(i int) float64 {
	mantissa := 1.0
	q := i / 2
	if i%2 != 0 {
		mantissa = 5
		// Go truncates toward zero; odd negative positions need the floor.
		q = (i - 1) / 2
	}
	if q < 0 {
		return mantissa / math.Pow(10, float64(-q))
	}
	return mantissa * math.Pow(10, float64(q))
}

// SelectScaleReference picks the canonical distance r whose length
// r·auToPixelScale lies strictly inside (minPx, maxPx).
//
// The walk starts at 1 AU and moves towards smaller references while the bar
// is too long and towards larger ones while it is too short. It fails with a
// ScaleOutOfRangeError when it has to turn around, which happens when the
// band is narrower than the gap between two neighbours, or when no match is
// found within MaxScaleSearchSteps positions.
func SelectScaleReference(auToPixelScale, minPx, maxPx float64) (ScaleBar, error) {
	if math.IsNaN(auToPixelScale) || math.IsInf(auToPixelScale, 0) || auToPixelScale <= 0 {
		return ScaleBar{}, invalid("au_to_pixel_scale", auToPixelScale, "must be a positive finite number")
	}
	if math.IsNaN(minPx) || minPx <= 0 {
		return ScaleBar{}, invalid("min_bar_width_px", minPx, "must be positive")
	}
	if math.IsNaN(maxPx) || math.IsInf(maxPx, 0) || maxPx <= minPx {
		return ScaleBar{}, invalid("max_bar_width_px", maxPx, "must be finite and greater than the minimum")
	}

	i, dir := 0, 0
	for step := 0; step < MaxScaleSearchSteps; step++ {
		r := CanonicalScale(i)
		length := r * auToPixelScale
		if length > minPx && length < maxPx {
			return ScaleBar{ReferenceDistanceAU: r, LengthPx: length, Steps: step}, nil
		}

		want := 1
		if length >= maxPx {
			want = -1
		}
		if dir != 0 && want != dir {
			return ScaleBar{}, &ScaleOutOfRangeError{Scale: auToPixelScale, MinPx: minPx, MaxPx: maxPx, Steps: step + 1}
		}
		dir = want
		i += dir
	}
	return ScaleBar{}, &ScaleOutOfRangeError{Scale: auToPixelScale, MinPx: minPx, MaxPx: maxPx, Steps: MaxScaleSearchSteps}
}

// Select runs SelectScaleReference with the band's bounds.
func (b ScaleBand) Select(auToPixelScale float64) (ScaleBar, error) {
	return SelectScaleReference(auToPixelScale, b.MinPx, b.MaxPx)
}
