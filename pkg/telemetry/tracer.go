package telemetry

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "yubikey-setup"

// Tracer wraps the OpenTelemetry tracer used to span the provisioning
// phases. Disabled by default; when enabled, spans are exported to stderr so
// they never mix with the interactive prompt stream.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewTracer creates a tracer. When enabled is false the provider has no
// exporter and spans are cheap no-ops.
func NewTracer(enabled bool, version string) (*Tracer, error) {
	if !enabled {
		provider := sdktrace.NewTracerProvider()
		return &Tracer{provider: provider, tracer: provider.Tracer(serviceName)}, nil
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace resource: %w", err)
	}

	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(os.Stderr),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)

	return &Tracer{provider: provider, tracer: provider.Tracer(serviceName)}, nil
}

// Start begins a named span.
func (t *Tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// Shutdown flushes pending spans. Runs even when ctx is already cancelled.
func (t *Tracer) Shutdown(ctx context.Context) error {
	return t.provider.Shutdown(context.WithoutCancel(ctx))
}
