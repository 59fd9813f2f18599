package term

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/signalsfoundry/orbiter/internal/orbiter"
	"github.com/signalsfoundry/orbiter/timectrl"
)

type frameCounter struct {
	mu     sync.Mutex
	frames int
	sinks  map[string]bool
}

func (f *frameCounter) ObserveFrame(sink string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames++
	if f.sinks == nil {
		f.sinks = map[string]bool{}
	}
	f.sinks[sink] = true
}

func newScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("screen.Init: %v", err)
	}
	screen.SetSize(80, 24)
	t.Cleanup(screen.Fini)
	return screen
}

func earthScene(t *testing.T) orbiter.Scene {
	t.Helper()
	s, err := orbiter.NewService(nil).SetOrbitForBody(context.Background(), "earth", 0, 0)
	if err != nil {
		t.Fatalf("SetOrbitForBody error: %v", err)
	}
	return s
}

func rowText(s tcell.Screen, y int) string {
	cols, _ := s.Size()
	var b strings.Builder
	for x := 0; x < cols; x++ {
		r, _, _, _ := s.GetContent(x, y)
		b.WriteRune(r)
	}
	return b.String()
}

func TestDrawPlacesSunAndBody(t *testing.T) {
	screen := newScreen(t)
	scene := earthScene(t)
	counter := &frameCounter{}
	a := NewAnimator(screen, scene, WithFrameObserver(counter))

	a.Draw(0)

	proj := newProjection(scene.Frame, 80, 24)
	sx, sy := proj.cell(scene.Geometry.Sun)
	if r, _, _, _ := screen.GetContent(sx, sy); r != sunRune {
		t.Fatalf("cell (%d,%d) = %q, want sun", sx, sy, r)
	}
	px, py := proj.cell(scene.Geometry.Periapsis())
	if r, _, _, _ := screen.GetContent(px, py); r != planetRune {
		t.Fatalf("cell (%d,%d) = %q, want planet at periapsis", px, py, r)
	}
	if !strings.Contains(rowText(screen, 23), "Earth") {
		t.Fatalf("status row = %q", rowText(screen, 23))
	}

	found := false
	for y := 0; y < 4; y++ {
		if strings.Contains(rowText(screen, y), "Scale: 1 AU") || strings.Contains(rowText(screen, y), "Scale: 0.5 AU") {
			found = true
		}
	}
	if !found {
		t.Fatalf("scale label not drawn near the top")
	}
	if counter.frames != 1 || !counter.sinks[sinkName] {
		t.Fatalf("frames = %d sinks = %v", counter.frames, counter.sinks)
	}
}

func TestDrawMovesBody(t *testing.T) {
	screen := newScreen(t)
	scene := earthScene(t)
	a := NewAnimator(screen, scene)
	proj := newProjection(scene.Frame, 80, 24)

	half := time.Duration(scene.Geometry.PeriodMs/2) * time.Millisecond
	a.Draw(half)
	x, y := proj.cell(scene.Geometry.Apoapsis())
	if r, _, _, _ := screen.GetContent(x, y); r != planetRune {
		t.Fatalf("cell (%d,%d) = %q, want planet at apoapsis after half a period", x, y, r)
	}
}

func TestRunAccelerated(t *testing.T) {
	screen := newScreen(t)
	counter := &frameCounter{}
	a := NewAnimator(screen, earthScene(t), WithFrameObserver(counter))
	tc := timectrl.NewTimeController(10*time.Millisecond, timectrl.Accelerated)

	if err := a.Run(context.Background(), tc, 50*time.Millisecond); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	counter.mu.Lock()
	defer counter.mu.Unlock()
	// One initial frame plus one per tick.
	if counter.frames != 6 {
		t.Fatalf("frames = %d, want 6", counter.frames)
	}
}

func TestRunStopsOnQuitKey(t *testing.T) {
	screen := newScreen(t)
	a := NewAnimator(screen, earthScene(t))
	tc := timectrl.NewTimeController(5*time.Millisecond, timectrl.RealTime)

	screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)

	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background(), tc, 0) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop after q")
	}
}
