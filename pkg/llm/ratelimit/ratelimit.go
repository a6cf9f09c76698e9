// Package ratelimit bounds outbound adapter requests with a token-bucket
// limiter, for hosts that share one provider HTTP client across many
// concurrent sessions.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter wraps golang.org/x/time/rate.Limiter for use as client
// middleware (see llm.Client.Use).
type Limiter struct {
	limiter *rate.Limiter
}

// New returns a Limiter allowing requestsPerSecond steady-state with the
// given burst.
func New(requestsPerSecond float64, burst int) *Limiter {
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
