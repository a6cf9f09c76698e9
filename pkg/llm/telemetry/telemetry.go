// Package telemetry provides OpenTelemetry integration for the LLM client
// and agent session loop: spans around adapter calls and session rounds,
// disabled by default.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "agentkit"

// Settings configures telemetry. Telemetry is disabled by default and
// must be explicitly enabled.
type Settings struct {
	IsEnabled     bool
	RecordInputs  bool
	RecordOutputs bool
	FunctionID    string
	Metadata      map[string]attribute.Value
	Tracer        trace.Tracer
}

// DefaultSettings returns Settings with telemetry disabled.
func DefaultSettings() *Settings {
	return &Settings{RecordInputs: true, RecordOutputs: true, Metadata: map[string]attribute.Value{}}
}

// WithEnabled returns a copy of s with IsEnabled set.
func (s *Settings) WithEnabled(enabled bool) *Settings {
	c := *s
	c.IsEnabled = enabled
	return &c
}

// GetTracer returns settings.Tracer if set, the global tracer when
// telemetry is enabled, or a no-op tracer when disabled/nil.
func GetTracer(settings *Settings) trace.Tracer {
	if settings == nil || !settings.IsEnabled {
		return noop.NewTracerProvider().Tracer(tracerName)
	}
	if settings.Tracer != nil {
		return settings.Tracer
	}
	return otel.Tracer(tracerName)
}

// SpanOptions configures a telemetry span.
type SpanOptions struct {
	Name       string
	Attributes []attribute.KeyValue
}

// RecordSpan starts a span named opts.Name, runs fn, records any error on
// the span, and always ends it.
func RecordSpan[T any](ctx context.Context, tracer trace.Tracer, opts SpanOptions, fn func(context.Context, trace.Span) (T, error)) (T, error) {
	ctx, span := tracer.Start(ctx, opts.Name, trace.WithAttributes(opts.Attributes...))
	defer span.End()

	result, err := fn(ctx, span)
	if err != nil {
		RecordErrorOnSpan(span, err)
		var zero T
		return zero, err
	}
	return result, nil
}

// RecordErrorOnSpan records err on span and marks it as failed.
func RecordErrorOnSpan(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// BaseAttributes returns the standard attribute set for an adapter call.
func BaseAttributes(provider, modelID string, settings *Settings) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("llm.provider", provider),
		attribute.String("llm.model.id", modelID),
	}
	if settings != nil {
		if settings.FunctionID != "" {
			attrs = append(attrs, attribute.String("llm.telemetry.functionId", settings.FunctionID))
		}
		for k, v := range settings.Metadata {
			attrs = append(attrs, attribute.KeyValue{Key: attribute.Key("llm.telemetry.metadata." + k), Value: v})
		}
	}
	return attrs
}
