package ocr

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// Free-tier model quota.
const (
	DefaultRateLimit  = 15
	DefaultRateWindow = time.Minute
)

// ErrRateLimited matches any *RateLimitError via errors.Is.
var ErrRateLimited = errors.New("rate limit reached")

// RateLimitError reports a rejected call and when capacity frees up.
type RateLimitError struct {
	ResetIn time.Duration
}

func (e *RateLimitError) Error() string {
	seconds := int(math.Ceil(e.ResetIn.Seconds()))
	return fmt.Sprintf("rate limit reached, try again in %d seconds", seconds)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// Decision is the outcome of a limiter check.
type Decision struct {
	Allowed bool

	// Remaining is the number of calls still allowed in the window after
	// this one.
	Remaining int

	// ResetIn is the time until the oldest recorded call leaves the window,
	// or the full window when none is recorded.
	ResetIn time.Duration
}

// Limiter gates calls to the model. Allow records the call only when it is
// allowed.
type Limiter interface {
	Allow(ctx context.Context) (Decision, error)
}

// SlidingWindow is an in-memory sliding-window limiter. It is process-wide:
// separate server instances do not share their windows.
type SlidingWindow struct {
	mu         sync.Mutex
	timestamps []time.Time
	max        int
	window     time.Duration
	now        func() time.Time
}

var _ Limiter = (*SlidingWindow)(nil)

// NewSlidingWindow allows at most max calls per rolling window.
func NewSlidingWindow(max int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{max: max, window: window, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (l *SlidingWindow) WithClock(now func() time.Time) *SlidingWindow {
	l.now = now
	return l
}

// Allow checks the window and records the call if it fits.
func (l *SlidingWindow) Allow(_ context.Context) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	windowStart := now.Add(-l.window)

	kept := l.timestamps[:0]
	for _, ts := range l.timestamps {
		if ts.After(windowStart) {
			kept = append(kept, ts)
		}
	}
	l.timestamps = kept

	resetIn := l.window
	if len(l.timestamps) > 0 {
		resetIn = l.timestamps[0].Add(l.window).Sub(now)
	}

	if len(l.timestamps) >= l.max {
		return Decision{Allowed: false, Remaining: 0, ResetIn: resetIn}, nil
	}

	l.timestamps = append(l.timestamps, now)
	return Decision{Allowed: true, Remaining: l.max - len(l.timestamps), ResetIn: resetIn}, nil
}
