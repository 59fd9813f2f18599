// Package svg writes a scene as a self-contained animated SVG document.
package svg

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/signalsfoundry/orbiter/core"
	"github.com/signalsfoundry/orbiter/internal/orbiter"
)

const (
	background = "#030321"
	labelColor = "#eeeeee"
	scaleColor = "#cccccc"

	sunRadius    = 10
	planetRadius = 7
	sunLabelGap  = 20

	// Scale bar anchor, top right of the canvas.
	scaleX      = 519
	scaleY      = 47
	scaleTickLo = 42
	scaleTickHi = 52
	scaleTextY  = 22

	keplerSamples = 72
)

// Options tune the output.
type Options struct {
	// Static omits the animation and draws the body at periapsis, as does
	// a scene with core.MotionStatic.
	Static bool
}

// Render writes scene to w.
func Render(w io.Writer, scene orbiter.Scene, opts Options) error {
	bw := bufio.NewWriter(w)
	f := scene.Frame
	g := scene.Geometry

	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`+"\n",
		num(f.Width), num(f.Height), num(f.Width), num(f.Height))
	fmt.Fprintf(bw, `<rect width="100%%" height="100%%" fill="%s"/>`+"\n", background)
	fmt.Fprintf(bw, `<path id="orbit" d="%s" fill="none" stroke="white"/>`+"\n", core.EllipsePath(g))

	writeBody(bw, scene, opts)

	fmt.Fprintf(bw, `<circle cx="%s" cy="%s" r="%d" fill="yellow"/>`+"\n", num(g.Sun.X), num(g.Sun.Y), sunRadius)
	fmt.Fprintf(bw, `<text x="%s" y="%s" fill="%s" text-anchor="middle" dominant-baseline="middle">%s</text>`+"\n",
		num(g.Sun.X), num(g.Sun.Y-sunLabelGap), labelColor, escape(scene.CentralBodyLabel))

	if scene.ScaleBar != nil {
		writeScaleBar(bw, *scene.ScaleBar)
	}

	bw.WriteString("</svg>\n")
	return bw.Flush()
}

func writeBody(w *bufio.Writer, scene orbiter.Scene, opts Options) {
	g := scene.Geometry
	color := escape(scene.Color)
	if opts.Static || scene.Motion == core.MotionStatic || !g.HasPeriod() {
		p := g.Periapsis()
		fmt.Fprintf(w, `<circle cx="%s" cy="%s" r="%d" fill="%s"/>`+"\n", num(p.X), num(p.Y), planetRadius, color)
		return
	}

	// The path is drawn clockwise; the body travels it backwards.
	keyPoints, keyTimes := "1;0", "0;1"
	if scene.Motion == core.MotionKepler {
		keyPoints, keyTimes = keplerKeys(g)
	}
	fmt.Fprintf(w, `<circle r="%d" fill="%s">`+"\n", planetRadius, color)
	fmt.Fprintf(w, `<animateMotion dur="%sms" repeatCount="indefinite" calcMode="linear" keyPoints="%s" keyTimes="%s">`+
		`<mpath href="#orbit"/></animateMotion>`+"\n", num(g.PeriodMs), keyPoints, keyTimes)
	w.WriteString("</circle>\n")
}

func keplerKeys(g core.OrbitGeometry) (string, string) {
	fr := core.KeplerPathFractions(g, keplerSamples)
	points := make([]string, len(fr))
	times := make([]string, len(fr))
	for i, f := range fr {
		points[i] = strconv.FormatFloat(1-f, 'f', 6, 64)
		times[i] = strconv.FormatFloat(float64(i)/keplerSamples, 'f', 6, 64)
	}
	return strings.Join(points, ";"), strings.Join(times, ";")
}

func writeScaleBar(w *bufio.Writer, bar core.ScaleBar) {
	left := num(scaleX - bar.LengthPx/2)
	right := num(scaleX + bar.LengthPx/2)
	fmt.Fprintf(w, `<path d="M %s,%d L %s,%d" stroke="%s" stroke-width="2"/>`+"\n", left, scaleY, right, scaleY, scaleColor)
	fmt.Fprintf(w, `<path d="M %s,%d L %s,%d" stroke="%s" stroke-width="1"/>`+"\n", left, scaleTickLo, left, scaleTickHi, scaleColor)
	fmt.Fprintf(w, `<path d="M %s,%d L %s,%d" stroke="%s" stroke-width="1"/>`+"\n", right, scaleTickLo, right, scaleTickHi, scaleColor)
	fmt.Fprintf(w, `<text x="%d" y="%d" fill="%s" font-size="14" text-anchor="middle">`+
		`<tspan x="%d" dy="-0.6em">Scale:</tspan><tspan x="%d" dy="1.2em">%s</tspan></text>`+"\n",
		scaleX, scaleTextY, labelColor, scaleX, scaleX, escape(bar.Label()))
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
