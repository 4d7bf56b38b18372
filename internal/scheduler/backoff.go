package scheduler

import (
	"math/rand"
	"time"
)

// backoffBase, backoffFactor, and backoffMax implement the retry backoff:
// exponential with base 100ms, factor 2, capped at 10s, with 10% jitter
// to avoid synchronized retry storms across tasks.
const (
	backoffBase   = 100 * time.Millisecond
	backoffFactor = 2.0
	backoffMax    = 10 * time.Second
	backoffJitter = 0.10
)

// nextBackoff returns the delay before retrying a task whose attempt
// number (the count of timeouts already observed, starting at 1) has just
// fired, with up to backoffJitter fractional jitter applied.
func nextBackoff(attempt int, rnd *rand.Rand) time.Duration {
	d := float64(backoffBase) * pow(backoffFactor, attempt-1)
	if d > float64(backoffMax) {
		d = float64(backoffMax)
	}
	jitter := 1 + (rnd.Float64()*2-1)*backoffJitter
	return time.Duration(d * jitter)
}

// pow is a tiny integer-exponent power helper, avoiding a math.Pow import
// for what is always a small non-negative exponent.
func pow(base float64, exp int) float64 {
	if exp <= 0 {
		return 1
	}
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}
