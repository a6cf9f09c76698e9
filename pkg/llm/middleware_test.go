package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/modelbridge/agentkit/pkg/llm"
	"github.com/modelbridge/agentkit/pkg/llm/ratelimit"
	"github.com/modelbridge/agentkit/pkg/llm/telemetry"
)

func TestRateLimitMiddlewareBlocksUntilTokenAvailable(t *testing.T) {
	limiter := ratelimit.New(1000, 1)
	mw := llm.RateLimitMiddleware(limiter)

	var called bool
	handler := mw.WrapComplete(func(ctx context.Context, req *llm.Request) (*llm.Response, error) {
		called = true
		return &llm.Response{Model: req.Model}, nil
	})

	resp, err := handler(context.Background(), &llm.Request{Model: "m"})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "m", resp.Model)
}

func TestRateLimitMiddlewarePropagatesContextCancellation(t *testing.T) {
	limiter := ratelimit.New(1000, 1)
	mw := llm.RateLimitMiddleware(limiter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	handler := mw.WrapComplete(func(ctx context.Context, req *llm.Request) (*llm.Response, error) {
		t.Fatal("handler must not run when the context is already cancelled")
		return nil, nil
	})

	_, err := handler(ctx, &llm.Request{Model: "m"})
	assert.Error(t, err)
}

func TestTelemetryMiddlewareRecordsUsageAttributesOnSuccess(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	settings := telemetry.DefaultSettings().WithEnabled(true)
	settings.Tracer = provider.Tracer("test")

	mw := llm.TelemetryMiddleware(settings)
	handler := mw.WrapComplete(func(ctx context.Context, req *llm.Request) (*llm.Response, error) {
		return &llm.Response{
			Model:    req.Model,
			Provider: "openai",
			Usage:    llm.Usage{InputTokens: 7, OutputTokens: 3},
		}, nil
	})

	_, err := handler(context.Background(), &llm.Request{Model: "gpt-5", Provider: "openai"})
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "llm.complete", spans[0].Name)

	var sawProvider, sawInputTokens bool
	for _, a := range spans[0].Attributes {
		if string(a.Key) == "llm.provider" && a.Value.AsString() == "openai" {
			sawProvider = true
		}
		if string(a.Key) == "llm.usage.input_tokens" && a.Value.AsInt64() == 7 {
			sawInputTokens = true
		}
	}
	assert.True(t, sawProvider)
	assert.True(t, sawInputTokens)
}

func TestTelemetryMiddlewareRecordsErrorWithoutUsageAttributes(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	settings := telemetry.DefaultSettings().WithEnabled(true)
	settings.Tracer = provider.Tracer("test")

	mw := llm.TelemetryMiddleware(settings)
	boom := errors.New("provider down")
	handler := mw.WrapComplete(func(ctx context.Context, req *llm.Request) (*llm.Response, error) {
		return nil, boom
	})

	_, err := handler(context.Background(), &llm.Request{Model: "m", Provider: "anthropic"})
	assert.ErrorIs(t, err, boom)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	for _, a := range spans[0].Attributes {
		assert.NotEqual(t, "llm.usage.input_tokens", string(a.Key))
	}
}

func TestTelemetryMiddlewareDisabledProducesNoSpans(t *testing.T) {
	settings := telemetry.DefaultSettings()
	mw := llm.TelemetryMiddleware(settings)

	handler := mw.WrapStream(func(ctx context.Context, req *llm.Request) (llm.Stream, error) {
		return nil, nil
	})

	_, err := handler(context.Background(), &llm.Request{Model: "m"})
	assert.NoError(t, err)
}
