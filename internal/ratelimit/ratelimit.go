// Package ratelimit wraps golang.org/x/time/rate with the small surface
// the adapters need.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter throttles calls to an upstream service.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a Limiter allowing rps requests per second with a burst of rps.
func New(rps float64) *Limiter {
	return NewWithBurst(rps, int(rps))
}

// NewWithBurst creates a Limiter with an explicit burst size.
func NewWithBurst(rps float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until the next call is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Allow reports whether a call may proceed right now.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// SetLimit adjusts the sustained rate.
func (l *Limiter) SetLimit(rps float64) {
	l.limiter.SetLimit(rate.Limit(rps))
}
