package ocr

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestSlidingWindow(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	limiter := NewSlidingWindow(DefaultRateLimit, DefaultRateWindow).WithClock(clock.Now)

	for i := range DefaultRateLimit {
		d, err := limiter.Allow(ctx)
		if err != nil {
			t.Fatalf("Allow failed: %v", err)
		}
		if !d.Allowed {
			t.Fatalf("Call %d rejected, want allowed", i+1)
		}
		if d.Remaining != DefaultRateLimit-i-1 {
			t.Errorf("Call %d remaining = %d, want %d", i+1, d.Remaining, DefaultRateLimit-i-1)
		}
		clock.Advance(time.Second)
	}

	d, _ := limiter.Allow(ctx)
	if d.Allowed {
		t.Fatal("16th call within the window was allowed")
	}
	// Oldest call was 15s ago.
	if d.ResetIn != 45*time.Second {
		t.Errorf("ResetIn = %v, want 45s", d.ResetIn)
	}

	// Rejected calls are not recorded, so the oldest still frees up first.
	clock.Advance(45 * time.Second)
	d, _ = limiter.Allow(ctx)
	if !d.Allowed {
		t.Error("Call after the oldest left the window was rejected")
	}

	clock.Advance(DefaultRateWindow)
	for i := range DefaultRateLimit {
		if d, _ := limiter.Allow(ctx); !d.Allowed {
			t.Fatalf("Call %d after a full window rejected", i+1)
		}
	}
}

func TestSlidingWindowEmptyReset(t *testing.T) {
	limiter := NewSlidingWindow(1, time.Minute)
	d, _ := limiter.Allow(context.Background())
	if !d.Allowed || d.ResetIn != time.Minute {
		t.Errorf("First call: %+v, want allowed with full-window reset", d)
	}
}

func TestRateLimitError(t *testing.T) {
	err := error(&RateLimitError{ResetIn: 1500 * time.Millisecond})
	if !errors.Is(err, ErrRateLimited) {
		t.Error("Expected errors.Is(err, ErrRateLimited)")
	}
	if got := err.Error(); got != "rate limit reached, try again in 2 seconds" {
		t.Errorf("Error() = %q", got)
	}
}
