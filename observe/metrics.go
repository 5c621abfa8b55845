package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names recorded by NewMetrics.
const (
	MetricOpsTotal    = "castgate.ops.total"
	MetricOpsFailures = "castgate.ops.failures"
	MetricOpsDuration = "castgate.ops.duration_ms"
)

// Metrics records operation counts and latencies.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	Record(ctx context.Context, op Operation, duration time.Duration, err error)
}

type metricsImpl struct {
	total    metric.Int64Counter
	failures metric.Int64Counter
	duration metric.Float64Histogram
}

// NewMetrics creates the operation instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	total, err := meter.Int64Counter(
		MetricOpsTotal,
		metric.WithDescription("Total number of instrumented operations"),
		metric.WithUnit("{op}"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter(
		MetricOpsFailures,
		metric.WithDescription("Operations that ended with an error, by outcome"),
		metric.WithUnit("{op}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		MetricOpsDuration,
		metric.WithDescription("Operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{total: total, failures: failures, duration: duration}, nil
}

func (m *metricsImpl) Record(ctx context.Context, op Operation, duration time.Duration, err error) {
	attrs := append(op.Attributes(), attribute.String("op.outcome", Outcome(err)))
	opt := metric.WithAttributes(attrs...)

	m.total.Add(ctx, 1, opt)
	if err != nil {
		m.failures.Add(ctx, 1, opt)
	}
	m.duration.Record(ctx, float64(duration.Microseconds())/1000, opt)
}
