// Package tracing records fiber runs as OpenTelemetry spans.
package tracing

import (
	"context"

	"github.com/jzx17/gotube/pkg/fiber"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// InstrumentationName is the tracer name used by the interceptor
	InstrumentationName = "github.com/jzx17/gotube/pkg/tracing"

	// SpanName names the span covering one run segment of a fiber
	SpanName = "fiber.run"
)

// Attribute keys set on every run span
const (
	AttrFiberID  = attribute.Key("fiber.id")
	AttrEngineID = attribute.Key("fiber.engine")
	AttrPacketID = attribute.Key("fiber.packet")
	AttrState    = attribute.Key("fiber.state")
)

// Interceptor is a fiber.ContextInterceptor that wraps each run segment in a span.
// Stages receive the span context and may start child spans from it.
type Interceptor struct {
	tracer trace.Tracer
}

var _ fiber.ContextInterceptor = (*Interceptor)(nil)

// NewInterceptor creates an interceptor using tp, or the global provider when tp is nil
func NewInterceptor(tp trace.TracerProvider) *Interceptor {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Interceptor{tracer: tp.Tracer(InstrumentationName)}
}

// Intercept starts a span, runs work inside it and records how the segment ended
func (i *Interceptor) Intercept(ctx context.Context, f *fiber.Fiber, work fiber.Work) {
	attrs := []attribute.KeyValue{
		AttrFiberID.String(f.ID()),
		AttrEngineID.String(f.Engine().ID()),
	}
	if p := f.Packet(); p != nil {
		attrs = append(attrs, AttrPacketID.String(p.ID))
	}

	ctx, span := i.tracer.Start(ctx, SpanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...))
	defer span.End()

	work(ctx)

	state := f.State()
	span.SetAttributes(AttrState.String(state.String()))
	switch state {
	case fiber.StateSuspended:
		span.AddEvent("fiber.suspended")
	case fiber.StateCancelled:
		span.SetStatus(codes.Error, "cancelled")
	case fiber.StateDone:
		if err := f.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}
