package core

import (
	"fmt"
	"strconv"
)

// EllipsePath returns SVG path data tracing the orbit once, starting and
// ending at periapsis. The arc ends 0.1px below its start because an arc
// whose endpoints coincide is not drawn.
func EllipsePath(g OrbitGeometry) string {
	start := g.Periapsis()
	return fmt.Sprintf("M %s,%s a %s,%s 0 1,1 0,0.1",
		num(start.X), num(start.Y),
		num(g.SemiMajorAxisPx), num(g.SemiMinorAxisPx),
	)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
