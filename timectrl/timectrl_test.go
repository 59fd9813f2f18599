package timectrl

import (
	"context"
	"testing"
	"time"
)

func TestTimeControllerReset(t *testing.T) {
	tc := NewTimeController(time.Second, RealTime)
	tc.Reset(42 * time.Second)

	if got := tc.Elapsed(); got != 42*time.Second {
		t.Fatalf("Elapsed() = %v, want 42s", got)
	}
}

func TestTimeControllerStartUpdatesElapsed(t *testing.T) {
	tc := NewTimeController(5*time.Millisecond, Accelerated)

	var seen []time.Duration
	tc.AddListener(func(elapsed time.Duration) {
		seen = append(seen, elapsed)
	})

	<-tc.Start(context.Background(), 15*time.Millisecond)

	if got := tc.Elapsed(); got != 15*time.Millisecond {
		t.Fatalf("Elapsed() = %v, want 15ms", got)
	}
	want := []time.Duration{5 * time.Millisecond, 10 * time.Millisecond, 15 * time.Millisecond}
	if len(seen) != len(want) {
		t.Fatalf("listener saw %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("listener saw %v, want %v", seen, want)
		}
	}
}

func TestTimeControllerRealTimeStopsOnCancel(t *testing.T) {
	tc := NewTimeController(time.Millisecond, RealTime)
	ctx, cancel := context.WithCancel(context.Background())

	ticked := make(chan struct{}, 1)
	tc.AddListener(func(time.Duration) {
		select {
		case ticked <- struct{}{}:
		default:
		}
	})

	done := tc.Start(ctx, 0)
	select {
	case <-ticked:
	case <-time.After(2 * time.Second):
		t.Fatalf("no tick within 2s")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("controller did not stop after cancel")
	}
	if tc.Elapsed() <= 0 {
		t.Fatalf("Elapsed() = %v, want > 0", tc.Elapsed())
	}
}

func TestTimeControllerNonPositiveTickDoesNotRun(t *testing.T) {
	for _, mode := range []Mode{RealTime, Accelerated} {
		tc := NewTimeController(0, mode)
		select {
		case <-tc.Start(context.Background(), 10*time.Millisecond):
		case <-time.After(time.Second):
			t.Fatalf("%v controller with zero tick did not finish", mode)
		}
		if tc.Elapsed() != 0 {
			t.Fatalf("Elapsed() = %v, want 0", tc.Elapsed())
		}
	}
}

func TestModeString(t *testing.T) {
	if Accelerated.String() != "accelerated" || RealTime.String() != "real-time" {
		t.Fatalf("unexpected mode names %q %q", Accelerated, RealTime)
	}
}
