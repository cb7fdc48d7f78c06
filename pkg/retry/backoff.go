package retry

import (
	"math/rand/v2"
	"time"
)

// Backoff calculates the delay before the next attempt. Attempt starts at 1
// for the first retry. Implementations must be safe for concurrent use.
type Backoff interface {
	NextInterval(attempt int) time.Duration
}

// LinearBackoff waits Interval × attempt, spread by ±JitterFactor and capped
// at MaxInterval.
type LinearBackoff struct {
	Interval     time.Duration
	MaxInterval  time.Duration
	JitterFactor float64
}

// NextInterval implements Backoff.
func (l LinearBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	interval := l.Interval
	if interval == 0 {
		interval = 50 * time.Millisecond
	}

	delay := float64(interval) * float64(attempt)

	// Zero jitter keeps delays deterministic for tests.
	if l.JitterFactor > 0 {
		delay *= 1 + (rand.Float64()*2-1)*l.JitterFactor
	}

	if l.MaxInterval > 0 && delay > float64(l.MaxInterval) {
		delay = float64(l.MaxInterval)
	}

	return time.Duration(delay)
}

// NoBackoff retries immediately.
type NoBackoff struct{}

// NextInterval implements Backoff.
func (NoBackoff) NextInterval(int) time.Duration { return 0 }
