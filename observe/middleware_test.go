package observe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type codedErr struct{ code string }

func (e codedErr) Error() string     { return "coded: " + e.code }
func (e codedErr) ErrorCode() string { return e.code }

func newTestMiddleware(t *testing.T) (*Middleware, *tracetest.SpanRecorder, *sdkmetric.ManualReader) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	return NewMiddleware(NewTracer(tp.Tracer("test")), metrics, NopLogger()), recorder, reader
}

func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name, outcome string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %s has type %T", name, m.Data)
			}
			for _, dp := range sum.DataPoints {
				v, _ := dp.Attributes.Value(attribute.Key("op.outcome"))
				if outcome == "" || v.AsString() == outcome {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestMiddleware_RunSuccess(t *testing.T) {
	mw, recorder, reader := newTestMiddleware(t)

	op := Operation{Name: "auth.gate", Permission: "get:actors"}
	err := mw.Run(context.Background(), op, func(ctx context.Context) error { return nil })
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "auth.gate" {
		t.Errorf("span name = %q, want auth.gate", spans[0].Name())
	}
	if got := counterValue(t, reader, MetricOpsTotal, "ok"); got != 1 {
		t.Errorf("total(ok) = %d, want 1", got)
	}
	if got := counterValue(t, reader, MetricOpsFailures, ""); got != 0 {
		t.Errorf("failures = %d, want 0", got)
	}
}

func TestMiddleware_RunErrorRecordsOutcomeCode(t *testing.T) {
	mw, recorder, reader := newTestMiddleware(t)

	want := codedErr{code: "no_permission"}
	err := mw.Run(context.Background(), Operation{Name: "auth.gate"}, func(ctx context.Context) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("Run() error = %v, want %v", err, want)
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	var outcome string
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "op.outcome" {
			outcome = kv.Value.AsString()
		}
	}
	if outcome != "no_permission" {
		t.Errorf("span outcome = %q, want no_permission", outcome)
	}
	if got := counterValue(t, reader, MetricOpsFailures, "no_permission"); got != 1 {
		t.Errorf("failures(no_permission) = %d, want 1", got)
	}
}

func TestMiddleware_RunRequiresName(t *testing.T) {
	mw := NewMiddleware(nil, nil, nil)
	called := false
	err := mw.Run(context.Background(), Operation{}, func(ctx context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrMissingOperationName) {
		t.Errorf("Run() error = %v, want ErrMissingOperationName", err)
	}
	if called {
		t.Error("fn should not run without an operation name")
	}
}

func TestMiddleware_HTTP(t *testing.T) {
	mw, recorder, reader := newTestMiddleware(t)

	handler := mw.HTTP(func(r *http.Request) string { return "/actors/{id}" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}),
	)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/actors/7", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "PATCH /actors/{id}" {
		t.Errorf("span name = %q", spans[0].Name())
	}
	if got := counterValue(t, reader, MetricOpsFailures, "http_503"); got != 1 {
		t.Errorf("failures(http_503) = %d, want 1", got)
	}
}

func TestOutcome(t *testing.T) {
	if Outcome(nil) != "ok" {
		t.Errorf("Outcome(nil) = %q", Outcome(nil))
	}
	if Outcome(errors.New("x")) != "error" {
		t.Errorf("Outcome(plain) = %q", Outcome(errors.New("x")))
	}
	wrapped := errors.Join(errors.New("context"), codedErr{code: "token_expired"})
	if Outcome(wrapped) != "token_expired" {
		t.Errorf("Outcome(wrapped) = %q", Outcome(wrapped))
	}
}

func TestStatusWriter_DefaultsToOK(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec, status: http.StatusOK}
	_, _ = sw.Write([]byte("hi"))
	sw.WriteHeader(http.StatusTeapot)
	if sw.status != http.StatusOK {
		t.Errorf("status = %d, want 200 after implicit header", sw.status)
	}
}
