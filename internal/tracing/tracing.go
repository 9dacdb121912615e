// Package tracing sets up OpenTelemetry for suite runs.
package tracing

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/padaiyal/playground"

// Span attribute keys.
var (
	AttrScenario  = attribute.Key("playground.scenario")
	AttrBrowser   = attribute.Key("playground.browser.name")
	AttrVersion   = attribute.Key("playground.browser.version")
	AttrPlatform  = attribute.Key("playground.platform")
	AttrMode      = attribute.Key("playground.session.mode")
	AttrSessionID = attribute.Key("playground.session.id")
	AttrState     = attribute.Key("playground.state")
)

// Provider owns the tracer provider installed by NewProvider.
type Provider struct {
	provider *sdktrace.TracerProvider
}

// NewProvider exports spans as JSON to w and installs itself as the global
// tracer provider.
func NewProvider(serviceName string, w io.Writer) (*Provider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(provider)
	return &Provider{provider: provider}, nil
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.provider.Shutdown(ctx)
}

// Tracer returns the tracer from the global provider. It is a no-op until a
// provider is installed.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}
