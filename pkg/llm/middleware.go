package llm

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/modelbridge/agentkit/pkg/llm/ratelimit"
	"github.com/modelbridge/agentkit/pkg/llm/telemetry"
)

// RateLimitMiddleware blocks each outbound Complete/Stream call on
// limiter, for hosts that share one Client across many concurrent
// sessions against a provider with a fixed requests-per-second budget.
func RateLimitMiddleware(limiter *ratelimit.Limiter) Middleware {
	return Middleware{
		WrapComplete: func(next CompleteHandler) CompleteHandler {
			return func(ctx context.Context, req *Request) (*Response, error) {
				if err := limiter.Wait(ctx); err != nil {
					return nil, err
				}
				return next(ctx, req)
			}
		},
		WrapStream: func(next StreamHandler) StreamHandler {
			return func(ctx context.Context, req *Request) (Stream, error) {
				if err := limiter.Wait(ctx); err != nil {
					return nil, err
				}
				return next(ctx, req)
			}
		},
	}
}

// TelemetryMiddleware wraps every Complete call in a span named
// "llm.complete" and every Stream call in a span named "llm.stream",
// tagged with provider and model attributes. A no-op when settings is
// disabled.
func TelemetryMiddleware(settings *telemetry.Settings) Middleware {
	tracer := telemetry.GetTracer(settings)
	return Middleware{
		WrapComplete: func(next CompleteHandler) CompleteHandler {
			return func(ctx context.Context, req *Request) (*Response, error) {
				attrs := telemetry.BaseAttributes(req.Provider, req.Model, settings)
				return telemetry.RecordSpan(ctx, tracer, telemetry.SpanOptions{Name: "llm.complete", Attributes: attrs},
					func(ctx context.Context, span trace.Span) (*Response, error) {
						resp, err := next(ctx, req)
						if err == nil && resp != nil {
							span.SetAttributes(attribute.Int64("llm.usage.input_tokens", resp.Usage.InputTokens))
							span.SetAttributes(attribute.Int64("llm.usage.output_tokens", resp.Usage.OutputTokens))
						}
						return resp, err
					})
			}
		},
		WrapStream: func(next StreamHandler) StreamHandler {
			return func(ctx context.Context, req *Request) (Stream, error) {
				attrs := telemetry.BaseAttributes(req.Provider, req.Model, settings)
				return telemetry.RecordSpan(ctx, tracer, telemetry.SpanOptions{Name: "llm.stream", Attributes: attrs},
					func(ctx context.Context, _ trace.Span) (Stream, error) {
						return next(ctx, req)
					})
			}
		},
	}
}
