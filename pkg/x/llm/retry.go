package llm

import (
	"context"
	"math/rand/v2"
	"time"
)

// SleepWithContext waits d and reports false when ctx ends first.
// A non-positive d returns true immediately.
func SleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// ExpBackoff doubles initial per attempt, capped at max when max > 0.
func ExpBackoff(attempt int, initial, max time.Duration) time.Duration {
	if attempt <= 0 {
		return initial
	}
	if attempt > 30 {
		attempt = 30
	}
	d := initial << attempt
	if d <= 0 || (max > 0 && d > max) {
		return max
	}
	return d
}

// WithJitter spreads d by +/-20%.
func WithJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(float64(d) * (0.8 + rand.Float64()*0.4))
}
