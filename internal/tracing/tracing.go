// Package tracing installs the OpenTelemetry SDK for the poll binaries.
// Without Init, otel's global no-op provider is used and spans cost nothing.
package tracing

import (
	"context"
	"errors"
	"io"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ErrAlreadyInitialized is returned when a provider is installed twice.
var ErrAlreadyInitialized = errors.New("tracing: provider already installed")

var (
	mu        sync.Mutex
	installed bool
)

// Init installs a stdout exporter writing pretty-printed spans to w and
// returns a function that flushes and removes it.
func Init(w io.Writer, serviceName, serviceVersion string) (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	return InitWithExporter(serviceName, serviceVersion, exporter)
}

// InitWithExporter installs the supplied exporter as the global provider.
func InitWithExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) (func(context.Context) error, error) {
	if exporter == nil {
		return func(context.Context) error { return nil }, nil
	}

	mu.Lock()
	defer mu.Unlock()
	if installed {
		return nil, ErrAlreadyInitialized
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithResource(res),
	)
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	installed = true

	return func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		err := tp.Shutdown(ctx)
		otel.SetTracerProvider(previous)
		installed = false
		return err
	}, nil
}
