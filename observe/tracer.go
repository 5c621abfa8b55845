package observe

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Operation describes one instrumented unit of work: a gate decision or an
// HTTP request.
type Operation struct {
	Name       string // Span name, e.g. "auth.gate" (required)
	Permission string // Required permission for gate decisions (optional)
	Method     string // HTTP method (optional)
	Route      string // Route pattern, never the raw path (optional)
}

// Attributes returns the low-cardinality attributes shared by spans and metrics.
func (o Operation) Attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String("op.name", o.Name)}
	if o.Permission != "" {
		attrs = append(attrs, attribute.String("auth.permission", o.Permission))
	}
	if o.Method != "" {
		attrs = append(attrs, attribute.String("http.request.method", o.Method))
	}
	if o.Route != "" {
		attrs = append(attrs, attribute.String("http.route", o.Route))
	}
	return attrs
}

// coder is implemented by errors that carry a machine-readable code.
type coder interface {
	ErrorCode() string
}

// Outcome classifies err for telemetry: "ok", the error's code when it
// implements ErrorCode() string, or "error".
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var c coder
	if errors.As(err, &c) {
		return c.ErrorCode()
	}
	return "error"
}

// Tracer wraps OpenTelemetry span management for operations.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	StartSpan(ctx context.Context, op Operation) (context.Context, trace.Span)
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, op Operation) (context.Context, trace.Span) {
	kind := trace.SpanKindInternal
	if op.Method != "" {
		kind = trace.SpanKindServer
	}
	return t.tracer.Start(ctx, op.Name,
		trace.WithAttributes(op.Attributes()...),
		trace.WithSpanKind(kind),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	span.SetAttributes(attribute.String("op.outcome", Outcome(err)))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type nopTracer struct{}

var noopTracer = tracenoop.NewTracerProvider().Tracer("noop")

func (nopTracer) StartSpan(ctx context.Context, op Operation) (context.Context, trace.Span) {
	return noopTracer.Start(ctx, op.Name)
}

func (nopTracer) EndSpan(span trace.Span, _ error) {
	span.End()
}
