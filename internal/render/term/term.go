// Package term animates a scene on a terminal using tcell.
package term

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/signalsfoundry/orbiter/core"
	"github.com/signalsfoundry/orbiter/internal/logging"
	"github.com/signalsfoundry/orbiter/internal/orbiter"
	"github.com/signalsfoundry/orbiter/timectrl"
)

const (
	orbitRune  = '·'
	sunRune    = '☼'
	planetRune = '●'

	orbitSamples = 360
	sinkName     = "term"
)

// FrameObserver records how long each frame took to draw.
type FrameObserver interface {
	ObserveFrame(sink string, d time.Duration)
}

// Animator draws one scene onto a tcell screen.
type Animator struct {
	screen  tcell.Screen
	scene   orbiter.Scene
	motion  core.MotionModel
	metrics FrameObserver
	log     logging.Logger
}

// Option customises an Animator.
type Option func(*Animator)

// WithFrameObserver records frame timings.
func WithFrameObserver(o FrameObserver) Option {
	return func(a *Animator) {
		a.metrics = o
	}
}

// WithLogger attaches a logger.
func WithLogger(l logging.Logger) Option {
	return func(a *Animator) {
		a.log = l
	}
}

// NewAnimator prepares an animator. The caller owns the screen and must
// Init it before drawing and Fini it afterwards.
func NewAnimator(screen tcell.Screen, scene orbiter.Scene, opts ...Option) *Animator {
	a := &Animator{
		screen: screen,
		scene:  scene,
		motion: scene.MotionModel(),
		log:    logging.Noop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// projection maps canvas pixels onto cells. Cells are about twice as tall
// as they are wide, so y is halved.
type projection struct {
	scale float64
}

func newProjection(f core.CanvasFrame, cols, rows int) projection {
	return projection{scale: math.Min(float64(cols)/f.Width, 2*float64(rows)/f.Height)}
}

func (p projection) cell(pt core.Point) (int, int) {
	return int(math.Round(pt.X * p.scale)), int(math.Round(pt.Y * p.scale / 2))
}

// Draw renders the scene with the body at its position after elapsed.
func (a *Animator) Draw(elapsed time.Duration) {
	start := time.Now()
	s := a.screen
	g := a.scene.Geometry

	s.Clear()
	cols, rows := s.Size()
	proj := newProjection(a.scene.Frame, cols, rows)

	label := tcell.StyleDefault.Foreground(tcell.GetColor("#eeeeee"))
	orbit := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	for i := 0; i < orbitSamples; i++ {
		t := 2 * math.Pi * float64(i) / orbitSamples
		x, y := proj.cell(core.Point{
			X: g.EllipseCenter.X - g.SemiMajorAxisPx*math.Cos(t),
			Y: g.EllipseCenter.Y + g.SemiMinorAxisPx*math.Sin(t),
		})
		s.SetContent(x, y, orbitRune, nil, orbit)
	}

	sx, sy := proj.cell(g.Sun)
	s.SetContent(sx, sy, sunRune, nil, tcell.StyleDefault.Foreground(tcell.ColorYellow))
	_, ly := proj.cell(core.Point{X: g.Sun.X, Y: g.Sun.Y - 20})
	if ly == sy {
		ly--
	}
	putCentered(s, sx, ly, a.scene.CentralBodyLabel, label)

	if bar := a.scene.ScaleBar; bar != nil {
		a.drawScaleBar(proj, *bar, label)
	}

	px, py := proj.cell(a.motion.Position(elapsed))
	s.SetContent(px, py, planetRune, nil, tcell.StyleDefault.Foreground(tcell.GetColor(a.scene.Color)))

	status := fmt.Sprintf("a=%g AU e=%g t=%s", a.scene.Elements.SemiMajorAxis, a.scene.Elements.Eccentricity, elapsed.Truncate(time.Millisecond))
	if a.scene.BodyName != "" {
		status = a.scene.BodyName + "  " + status
	}
	putString(s, 0, rows-1, status, label)

	s.Show()
	if a.metrics != nil {
		a.metrics.ObserveFrame(sinkName, time.Since(start))
	}
}

func (a *Animator) drawScaleBar(proj projection, bar core.ScaleBar, style tcell.Style) {
	const cx, barY, textY = 519, 47, 22
	s := a.screen
	left, y := proj.cell(core.Point{X: cx - bar.LengthPx/2, Y: barY})
	right, _ := proj.cell(core.Point{X: cx + bar.LengthPx/2, Y: barY})
	barStyle := tcell.StyleDefault.Foreground(tcell.GetColor("#cccccc"))
	for x := left + 1; x < right; x++ {
		s.SetContent(x, y, '─', nil, barStyle)
	}
	s.SetContent(left, y, '├', nil, barStyle)
	s.SetContent(right, y, '┤', nil, barStyle)

	mid, ty := proj.cell(core.Point{X: cx, Y: textY})
	if ty >= y {
		ty = y - 1
	}
	putCentered(s, mid, ty, "Scale: "+bar.Label(), style)
}

// Run redraws on every tick of tc until duration has elapsed, ctx is
// cancelled, or the user presses q, Esc or Ctrl-C.
func (a *Animator) Run(ctx context.Context, tc *timectrl.TimeController, duration time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.watchKeys(ctx, cancel)

	tc.AddListener(a.Draw)
	a.Draw(tc.Elapsed())

	a.log.Debug(ctx, "terminal animation started",
		logging.Duration("tick", tc.Tick),
		logging.String("mode", tc.Mode.String()),
	)
	<-tc.Start(ctx, duration)
	return nil
}

func (a *Animator) watchKeys(ctx context.Context, cancel context.CancelFunc) {
	for {
		ev := a.screen.PollEvent()
		switch ev := ev.(type) {
		case nil:
			return
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q' {
				a.log.Debug(ctx, "terminal animation stopped by user")
				cancel()
				return
			}
		case *tcell.EventResize:
			a.screen.Sync()
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func putString(s tcell.Screen, x, y int, text string, style tcell.Style) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
}

func putCentered(s tcell.Screen, cx, y int, text string, style tcell.Style) {
	putString(s, cx-len([]rune(text))/2, y, text, style)
}
