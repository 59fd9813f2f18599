package httpapi

import (
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestIPRateLimiterEvictsIdleClients(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(rate.Limit(1), 1)
	l.now = func() time.Time { return now }

	first := l.GetLimiter("10.0.0.1")
	now = now.Add(5 * time.Minute)
	second := l.GetLimiter("10.0.0.2")
	if l.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", l.Len())
	}

	// 11 minutes in, 10.0.0.1 has been idle past DefaultLimiterIdle.
	now = now.Add(6 * time.Minute)
	l.GetLimiter("10.0.0.3")
	if l.Len() != 2 {
		t.Fatalf("Len() after sweep = %d, want 2", l.Len())
	}
	if l.GetLimiter("10.0.0.2") != second {
		t.Fatalf("recently seen client lost its bucket")
	}
	if l.GetLimiter("10.0.0.1") == first {
		t.Fatalf("idle client kept its bucket")
	}
}
