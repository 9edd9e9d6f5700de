// Package apm wires the OTEL tracer provider and exposes tracer helpers.
package apm

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"
	"go.opentelemetry.io/otel/trace"
)

// Provider selects a span exporter.
type Provider string

const (
	ConsoleProvider Provider = "console"
	OTLPProvider    Provider = "otlp"
	EmptyProvider   Provider = "empty"
)

// TraceProvider owns the installed tracer provider lifecycle.
type TraceProvider interface {
	Stop() error
}

type traceProvider struct {
	tp *sdktrace.TracerProvider
}

func (p *traceProvider) Stop() error {
	if p.tp == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return p.tp.Shutdown(ctx)
}

type emptyProvider struct{}

func (emptyProvider) Stop() error { return nil }

// Config describes the tracing setup.
type Config struct {
	ServiceName  string
	Provider     Provider
	OTLPEndpoint string
	OTLPHeaders  map[string]string
	Insecure     bool
}

// NewTraceProvider builds a span exporter per Config and installs it as
// the OTEL global tracer provider.
func NewTraceProvider(cfg Config) (TraceProvider, error) {
	var (
		exp sdktrace.SpanExporter
		err error
	)

	switch cfg.Provider {
	case ConsoleProvider:
		exp, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case OTLPProvider:
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpointURL(cfg.OTLPEndpoint),
			otlptracegrpc.WithHeaders(cfg.OTLPHeaders),
		}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exp, err = otlptracegrpc.New(context.Background(), opts...)
	default:
		return emptyProvider{}, nil
	}
	if err != nil {
		return nil, err
	}

	rsrc, _ := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(semconv.ServiceNameKey.String(cfg.ServiceName)),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(rsrc),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	return &traceProvider{tp: tp}, nil
}

// TraceID returns the active trace ID for the context, or "".
func TraceID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
