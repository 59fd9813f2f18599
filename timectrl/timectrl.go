package timectrl

import (
	"context"
	"sync"
	"time"
)

// Clock reports how much animation time has elapsed.
type Clock interface {
	Elapsed() time.Duration
}

// Mode describes how the TimeController advances animation time.
type Mode int

const (
	// RealTime advances according to wall-clock time.
	RealTime Mode = iota
	// Accelerated advances as quickly as the loop can run while still stepping by Tick.
	Accelerated
)

func (m Mode) String() string {
	if m == Accelerated {
		return "accelerated"
	}
	return "real-time"
}

// TimeController drives animation time in Tick steps and notifies registered
// listeners after every step. It implements Clock.
type TimeController struct {
	mu   sync.RWMutex
	Tick time.Duration
	Mode Mode

	elapsed   time.Duration
	listeners []func(time.Duration)
}

// NewTimeController constructs a controller starting at zero elapsed time.
func NewTimeController(tick time.Duration, mode Mode) *TimeController {
	return &TimeController{
		Tick: tick,
		Mode: mode,
	}
}

// Elapsed returns the current animation time. Implements Clock.
func (tc *TimeController) Elapsed() time.Duration {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.elapsed
}

// Reset rewinds the animation to t, e.g. when a new orbit replaces the old one.
func (tc *TimeController) Reset(t time.Duration) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.elapsed = t
}

// AddListener registers a callback invoked on every tick.
func (tc *TimeController) AddListener(fn func(time.Duration)) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.listeners = append(tc.listeners, fn)
}

// Start runs the controller in a separate goroutine until duration has
// elapsed (forever when duration <= 0) or ctx is cancelled. It returns a
// channel that is closed when the controller finishes. A non-positive Tick
// cannot advance time, so the returned channel is already closed.
func (tc *TimeController) Start(ctx context.Context, duration time.Duration) <-chan struct{} {
	done := make(chan struct{})
	if tc.Tick <= 0 {
		close(done)
		return done
	}
	go func() {
		defer close(done)

		var ticks <-chan time.Time
		if tc.Mode == RealTime {
			ticker := time.NewTicker(tc.Tick)
			defer ticker.Stop()
			ticks = ticker.C
		}

		run := time.Duration(0)
		for {
			if duration > 0 && run >= duration {
				return
			}

			if ticks != nil {
				select {
				case <-ctx.Done():
					return
				case <-ticks:
				}
			} else if ctx.Err() != nil {
				return
			}
			run += tc.Tick

			tc.mu.Lock()
			tc.elapsed += tc.Tick
			now := tc.elapsed
			listeners := append([]func(time.Duration){}, tc.listeners...)
			tc.mu.Unlock()

			for _, fn := range listeners {
				fn(now)
			}
		}
	}()
	return done
}
