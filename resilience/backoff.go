package resilience

import (
	"math/rand/v2"
	"time"
)

// Backoff computes exponential delays between attempts.
type Backoff struct {
	Initial    time.Duration // delay before the second attempt, default 100ms
	Max        time.Duration // cap on any single delay, default 30s
	Multiplier float64       // growth per attempt, default 2
	Jitter     bool          // add up to 25% random delay
}

func (b Backoff) withDefaults() Backoff {
	if b.Initial <= 0 {
		b.Initial = 100 * time.Millisecond
	}
	if b.Max <= 0 {
		b.Max = 30 * time.Second
	}
	if b.Multiplier < 1 {
		b.Multiplier = 2
	}
	return b
}

// Delay returns the wait after the given failed attempt, counting from 1.
func (b Backoff) Delay(attempt int) time.Duration {
	b = b.withDefaults()

	delay := float64(b.Initial)
	for i := 1; i < attempt && delay < float64(b.Max); i++ {
		delay *= b.Multiplier
	}
	d := min(time.Duration(delay), b.Max)

	if b.Jitter && d >= 4 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		d += time.Duration(rand.Int64N(int64(d / 4)))
	}
	return d
}
