package tracing

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// StdoutConfig configures InitStdoutTracer
type StdoutConfig struct {
	// ServiceName is reported as the service.name resource attribute
	ServiceName string

	// Writer receives the exported spans (optional, defaults to stdout)
	Writer io.Writer

	// PrettyPrint indents exported spans
	PrettyPrint bool

	// Logger receives setup messages (optional)
	Logger *slog.Logger
}

// InitStdoutTracer installs a global tracer provider exporting to a writer.
// The returned function flushes and shuts the provider down.
func InitStdoutTracer(config StdoutConfig) (*sdktrace.TracerProvider, func(context.Context) error, error) {
	opts := []stdouttrace.Option{}
	if config.Writer != nil {
		opts = append(opts, stdouttrace.WithWriter(config.Writer))
	}
	if config.PrettyPrint {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, nil, err
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			"",
			semconv.ServiceName(config.ServiceName),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	if config.Logger != nil {
		config.Logger.Info("tracing initialized", slog.String("service", config.ServiceName))
	}
	return tp, tp.Shutdown, nil
}
