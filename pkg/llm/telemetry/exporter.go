package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ExporterConfig configures an OTLP/HTTP trace exporter for a running
// agentkit process. It is the production counterpart to Settings.Tracer:
// set it up once at process start, then build per-client/session Settings
// with IsEnabled true and leave Tracer nil so GetTracer falls through to
// the global provider this installs.
type ExporterConfig struct {
	// Endpoint is the OTLP/HTTP collector host:port, e.g. "localhost:4318".
	Endpoint string

	// ServiceName identifies this process in the exported resource
	// attributes. Defaults to "agentkit" when empty.
	ServiceName string

	// Insecure disables TLS for the exporter connection.
	Insecure bool

	// Headers are sent with every export request, e.g. collector auth.
	Headers map[string]string
}

// Exporter owns a batching OTLP trace exporter and the TracerProvider it
// feeds. Callers must Shutdown it before process exit to flush pending
// spans.
type Exporter struct {
	provider *sdktrace.TracerProvider
	exporter *otlptrace.Exporter
}

// InitExporter creates an OTLP/HTTP exporter and installs a
// TracerProvider built on it as the global provider, so GetTracer with
// enabled settings and no explicit Tracer resolves to it. GetTracer(nil)
// and disabled settings still get a no-op tracer.
func InitExporter(ctx context.Context, cfg ExporterConfig) (*Exporter, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("telemetry: Endpoint is required")
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "agentkit"
	}

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithHeaders(cfg.Headers),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: failed to create OTLP exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes("", attribute.String("service.name", cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: failed to build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return &Exporter{provider: tp, exporter: exp}, nil
}

// Shutdown flushes and closes the exporter, detaching it from further use.
func (e *Exporter) Shutdown(ctx context.Context) error {
	if e == nil || e.provider == nil {
		return nil
	}
	return e.provider.Shutdown(ctx)
}
