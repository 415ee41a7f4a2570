// Package ratelimit implements the Rate Limiter (spec.md §4.D): a
// token-bucket pacer returning the wait duration until the next
// permitted emission.
//
// golang.org/x/time/rate already implements exactly this algorithm
// (monotonic-clock based, continuous refill, configurable burst); the
// pack's other ground-truth rate-limited producers
// (estuary-flow's soak-test generator, df2redis's replica writer) both
// reach for it rather than hand-rolling a bucket, so this package wraps
// rate.Limiter instead of reimplementing token accounting.
package ratelimit

import (
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces one entity's emission loop at a configured rate.
type Limiter struct {
	rl *rate.Limiter
}

// New builds a Limiter for ratePerSecond tokens/second with one second
// of burst capacity, per spec.md §4.D. A rate of 0 disables pacing
// entirely (Reserve always returns 0), since rate.Limiter does not
// accept a zero limit directly.
func New(ratePerSecond float64) *Limiter {
	if ratePerSecond <= 0 {
		return &Limiter{rl: rate.NewLimiter(rate.Inf, 0)}
	}
	burst := int(ratePerSecond)
	if burst < 1 {
		burst = 1
	}
	return &Limiter{rl: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

// Reserve consumes one token and returns how long the caller must wait
// before proceeding — 0 if a token was immediately available.
func (l *Limiter) Reserve() time.Duration {
	r := l.rl.Reserve()
	if !r.OK() {
		return 0
	}
	d := r.Delay()
	if d < 0 {
		return 0
	}
	return d
}
