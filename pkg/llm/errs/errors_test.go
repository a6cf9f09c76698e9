package errs_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelbridge/agentkit/pkg/llm/errs"
)

func TestKindRetryable(t *testing.T) {
	assert.True(t, errs.KindRateLimit.Retryable())
	assert.True(t, errs.KindServer.Retryable())
	assert.False(t, errs.KindAuthentication.Retryable())
	assert.False(t, errs.KindInvalidRequest.Retryable())
}

func TestNewAndIs(t *testing.T) {
	err := errs.New(errs.KindNotFound, "missing")
	assert.True(t, errs.Is(err, errs.KindNotFound))
	assert.False(t, errs.Is(err, errs.KindServer))
	assert.False(t, errs.Is(errors.New("plain"), errs.KindNotFound))
}

func TestSDKErrorMessageIncludesProviderWhenSet(t *testing.T) {
	withProvider := errs.New(errs.KindServer, "boom", errs.WithProvider("openai"))
	assert.Equal(t, "openai: server: boom", withProvider.Error())

	withoutProvider := errs.New(errs.KindServer, "boom")
	assert.Equal(t, "server: boom", withoutProvider.Error())
}

func TestSDKErrorUnwrapReturnsCause(t *testing.T) {
	cause := errors.New("network reset")
	err := errs.New(errs.KindNetwork, "failed", errs.WithCause(cause))
	assert.ErrorIs(t, err, cause)
}

func TestFromStatusCodeKnownStatuses(t *testing.T) {
	tests := []struct {
		status int
		kind   errs.Kind
	}{
		{400, errs.KindInvalidRequest},
		{401, errs.KindAuthentication},
		{403, errs.KindAccessDenied},
		{404, errs.KindNotFound},
		{408, errs.KindRequestTimeout},
		{413, errs.KindContextLength},
		{429, errs.KindRateLimit},
		{500, errs.KindServer},
		{503, errs.KindServer},
	}
	for _, tt := range tests {
		err := errs.FromStatusCode(tt.status, "message", "openai", nil, nil)
		assert.Equal(t, tt.kind, err.Kind())
	}
}

func TestFromStatusCodeUnknownStatusFallsBackToMessagePatterns(t *testing.T) {
	err := errs.FromStatusCode(999, "Request rejected: content filter triggered", "openai", nil, nil)
	assert.Equal(t, errs.KindContentFilter, err.Kind())
}

func TestFromStatusCodeUnknownStatusAndMessageDefaultsToServer(t *testing.T) {
	err := errs.FromStatusCode(999, "totally unrecognized failure", "openai", nil, nil)
	assert.Equal(t, errs.KindServer, err.Kind())
	assert.True(t, err.Retryable())
}

func TestFromStatusCodeCarriesRetryAfterAndRaw(t *testing.T) {
	retryAfter := 2.5
	raw := map[string]any{"request_id": "abc"}
	err := errs.FromStatusCode(429, "slow down", "anthropic", &retryAfter, raw)

	require.NotNil(t, err.RetryAfter)
	assert.Equal(t, 2.5, *err.RetryAfter)
	assert.Equal(t, raw, err.Raw)
	assert.Equal(t, "anthropic", err.Provider)
	assert.Equal(t, 429, err.StatusCode)
}
