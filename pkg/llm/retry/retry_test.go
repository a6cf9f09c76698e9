package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelbridge/agentkit/pkg/llm/errs"
	"github.com/modelbridge/agentkit/pkg/llm/retry"
)

func fastPolicy() retry.Policy {
	p := retry.DefaultPolicy()
	p.BaseDelay = time.Millisecond
	p.MaxDelay = 5 * time.Millisecond
	p.Jitter = false
	return p
}

func TestDoReturnsImmediatelyOnSuccess(t *testing.T) {
	calls := 0
	result, err := retry.Do(context.Background(), fastPolicy(), func(ctx context.Context) (any, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestDoDoesNotRetryNonSDKErrors(t *testing.T) {
	calls := 0
	plain := errors.New("boom")
	_, err := retry.Do(context.Background(), fastPolicy(), func(ctx context.Context) (any, error) {
		calls++
		return nil, plain
	})
	assert.ErrorIs(t, err, plain)
	assert.Equal(t, 1, calls)
}

func TestDoDoesNotRetryNonRetryableSDKErrors(t *testing.T) {
	calls := 0
	sdkErr := errs.New(errs.KindAuthentication, "bad key")
	_, err := retry.Do(context.Background(), fastPolicy(), func(ctx context.Context) (any, error) {
		calls++
		return nil, sdkErr
	})
	assert.Same(t, sdkErr, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesRetryableSDKErrorsUpToMaxRetries(t *testing.T) {
	calls := 0
	sdkErr := errs.New(errs.KindServer, "unavailable")
	p := fastPolicy()
	p.MaxRetries = 2

	_, err := retry.Do(context.Background(), p, func(ctx context.Context) (any, error) {
		calls++
		return nil, sdkErr
	})
	assert.Same(t, sdkErr, err)
	assert.Equal(t, 3, calls) // initial attempt + 2 retries
}

func TestDoSucceedsAfterTransientRetryableError(t *testing.T) {
	calls := 0
	sdkErr := errs.New(errs.KindServer, "unavailable")
	result, err := retry.Do(context.Background(), fastPolicy(), func(ctx context.Context) (any, error) {
		calls++
		if calls < 2 {
			return nil, sdkErr
		}
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", result)
	assert.Equal(t, 2, calls)
}

func TestDoHonorsRetryAfterWhenWithinMaxDelay(t *testing.T) {
	calls := 0
	retryAfter := 0.001 // 1ms, well within MaxDelay
	sdkErr := errs.New(errs.KindRateLimit, "slow down", errs.WithRetryAfter(retryAfter))
	result, err := retry.Do(context.Background(), fastPolicy(), func(ctx context.Context) (any, error) {
		calls++
		if calls < 2 {
			return nil, sdkErr
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestDoGivesUpWhenRetryAfterExceedsMaxDelay(t *testing.T) {
	calls := 0
	retryAfter := 3600.0 // one hour, far beyond MaxDelay
	sdkErr := errs.New(errs.KindRateLimit, "slow down", errs.WithRetryAfter(retryAfter))
	_, err := retry.Do(context.Background(), fastPolicy(), func(ctx context.Context) (any, error) {
		calls++
		return nil, sdkErr
	})
	assert.Same(t, sdkErr, err)
	assert.Equal(t, 1, calls)
}

func TestDoStopsOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := retry.DefaultPolicy()
	p.BaseDelay = time.Hour
	sdkErr := errs.New(errs.KindServer, "unavailable")

	_, err := retry.Do(ctx, p, func(ctx context.Context) (any, error) {
		return nil, sdkErr
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDelayForAttemptGrowsExponentiallyAndCapsAtMaxDelay(t *testing.T) {
	p := retry.Policy{BaseDelay: time.Second, Multiplier: 2.0, MaxDelay: 3 * time.Second, Jitter: false}

	assert.Equal(t, time.Second, retry.DelayForAttempt(0, p))
	assert.Equal(t, 2*time.Second, retry.DelayForAttempt(1, p))
	assert.Equal(t, 3*time.Second, retry.DelayForAttempt(2, p)) // would be 4s uncapped
}
