package observe

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Middleware wraps operations with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: the span context is propagated to the wrapped function.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware from its parts. Nil parts are replaced
// with no-op implementations.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = nopTracer{}
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs *Observer) (*Middleware, error) {
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Run executes fn inside a span for op and records its outcome.
func (m *Middleware) Run(ctx context.Context, op Operation, fn func(context.Context) error) error {
	if op.Name == "" {
		return ErrMissingOperationName
	}

	ctx, span := m.tracer.StartSpan(ctx, op)
	start := time.Now()

	err := fn(ctx)

	duration := time.Since(start)
	m.tracer.EndSpan(span, err)
	m.metrics.Record(ctx, op, duration, err)

	if err != nil {
		m.logger.Debug(ctx, "operation failed",
			F("op", op.Name),
			F("outcome", Outcome(err)),
			F("duration_ms", float64(duration.Microseconds())/1000),
		)
	}
	return err
}

// RouteFunc returns the route pattern that served r.
type RouteFunc func(r *http.Request) string

// HTTP instruments every request passing through next. route is evaluated
// after next returns so routers that resolve patterns lazily are supported;
// when nil the method is used alone.
func (m *Middleware) HTTP(route RouteFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			op := Operation{Name: "http.request", Method: r.Method}
			ctx, span := m.tracer.StartSpan(r.Context(), op)
			start := time.Now()

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r.WithContext(ctx))

			if route != nil {
				op.Route = route(r)
				span.SetName(fmt.Sprintf("%s %s", r.Method, op.Route))
			}
			span.SetAttributes(op.Attributes()...)

			var err error
			if sw.status >= http.StatusInternalServerError {
				err = httpStatusError(sw.status)
			}
			duration := time.Since(start)
			m.tracer.EndSpan(span, err)
			m.metrics.Record(ctx, op, duration, err)

			m.logger.Info(ctx, "request",
				F("method", r.Method),
				F("route", op.Route),
				F("status", sw.status),
				F("duration_ms", float64(duration.Microseconds())/1000),
			)
		})
	}
}

type httpStatusError int

func (e httpStatusError) Error() string     { return fmt.Sprintf("http status %d", int(e)) }
func (e httpStatusError) ErrorCode() string { return fmt.Sprintf("http_%d", int(e)) }

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.wroteHeader = true
	}
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

type nopMetrics struct{}

func (nopMetrics) Record(context.Context, Operation, time.Duration, error) {}
