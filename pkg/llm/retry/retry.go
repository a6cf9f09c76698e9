// Package retry implements exponential-backoff-with-jitter retry over
// retryable SDK errors, honoring provider retry_after hints.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/modelbridge/agentkit/pkg/llm/errs"
)

// Policy configures retry behavior. Mirrors the adapter-level retry
// contract: only *errs.SDKError values with Retryable()==true are
// retried; any other error propagates immediately.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	Jitter     bool
	OnRetry    func(err error, attempt int, wait time.Duration)
}

// DefaultPolicy returns the standard retry configuration.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 2,
		BaseDelay:  time.Second,
		MaxDelay:   60 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// DelayForAttempt computes the backoff delay for a 0-indexed attempt.
func DelayForAttempt(attempt int, p Policy) time.Duration {
	delay := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt))
	if maxDelay := float64(p.MaxDelay); delay > maxDelay {
		delay = maxDelay
	}
	if p.Jitter {
		delay *= 0.5 + rand.Float64()
	}
	return time.Duration(delay)
}

// Func is the operation retried by Do.
type Func func(ctx context.Context) (any, error)

// Do executes fn, retrying per policy on retryable *errs.SDKError values.
// Non-SDK errors and non-retryable SDK errors propagate immediately. If
// the error carries a RetryAfter that exceeds MaxDelay, Do returns it
// immediately without sleeping.
func Do(ctx context.Context, p Policy, fn Func) (any, error) {
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		var sdkErr *errs.SDKError
		if !errors.As(err, &sdkErr) {
			return nil, err
		}
		if !sdkErr.Retryable() {
			return nil, err
		}
		if attempt >= p.MaxRetries {
			return nil, err
		}

		var wait time.Duration
		if sdkErr.RetryAfter != nil {
			retryAfter := time.Duration(*sdkErr.RetryAfter * float64(time.Second))
			if retryAfter > p.MaxDelay {
				return nil, err
			}
			wait = retryAfter
		} else {
			wait = DelayForAttempt(attempt, p)
		}

		if p.OnRetry != nil {
			p.OnRetry(err, attempt+1, wait)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, lastErr
}
