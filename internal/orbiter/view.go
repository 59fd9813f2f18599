package orbiter

import "github.com/signalsfoundry/orbiter/core"

// PointView is a JSON point.
type PointView struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ScaleBarView is the JSON form of core.ScaleBar.
type ScaleBarView struct {
	ReferenceDistanceAU float64 `json:"reference_distance_au"`
	LengthPx            float64 `json:"length_px"`
	Label               string  `json:"label"`
}

// SceneView is the wire form of a Scene shared by the CLI and HTTP API.
type SceneView struct {
	SemiMajorAxisAU float64 `json:"semi_major_axis_au"`
	Eccentricity    float64 `json:"eccentricity"`

	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	SemiMajorAxisPx float64   `json:"semi_major_axis_px"`
	SemiMinorAxisPx float64   `json:"semi_minor_axis_px"`
	FocalDistancePx float64   `json:"focal_distance_px"`
	Center          PointView `json:"center"`
	Sun             PointView `json:"sun"`
	EllipseCenter   PointView `json:"ellipse_center"`
	Periapsis       PointView `json:"periapsis"`
	AUToPixelScale  float64   `json:"au_to_pixel_scale"`
	PeriodMs        float64   `json:"period_ms,omitempty"`
	Path            string    `json:"path"`

	ScaleBar *ScaleBarView `json:"scale_bar,omitempty"`

	CentralBody string `json:"central_body"`
	Body        string `json:"body,omitempty"`
	Color       string `json:"color"`
	Motion      string `json:"motion"`
}

func pointView(p core.Point) PointView { return PointView{X: p.X, Y: p.Y} }

// View converts the scene for JSON encoding.
func (s Scene) View() SceneView {
	g := s.Geometry
	v := SceneView{
		SemiMajorAxisAU: s.Elements.SemiMajorAxis,
		Eccentricity:    s.Elements.Eccentricity,
		Width:           s.Frame.Width,
		Height:          s.Frame.Height,
		SemiMajorAxisPx: g.SemiMajorAxisPx,
		SemiMinorAxisPx: g.SemiMinorAxisPx,
		FocalDistancePx: g.FocalDistancePx,
		Center:          pointView(g.Center),
		Sun:             pointView(g.Sun),
		EllipseCenter:   pointView(g.EllipseCenter),
		Periapsis:       pointView(g.Periapsis()),
		AUToPixelScale:  g.AUToPixelScale,
		PeriodMs:        g.PeriodMs,
		Path:            core.EllipsePath(g),
		CentralBody:     s.CentralBodyLabel,
		Body:            s.BodyName,
		Color:           s.Color,
		Motion:          s.Motion.String(),
	}
	if s.ScaleBar != nil {
		v.ScaleBar = &ScaleBarView{
			ReferenceDistanceAU: s.ScaleBar.ReferenceDistanceAU,
			LengthPx:            s.ScaleBar.LengthPx,
			Label:               s.ScaleBar.Label(),
		}
	}
	return v
}
