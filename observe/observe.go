package observe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// Config selects the service's telemetry backends.
type Config struct {
	ServiceName string `validate:"required"`
	Version     string
	Tracing     TracingConfig
	Metrics     MetricsConfig
	Logging     LoggingConfig
}

type TracingConfig struct {
	Enabled   bool
	Exporter  string  `validate:"omitempty,oneof=otlp stdout none"`
	SamplePct float64 `validate:"gte=0,lte=1"`
}

type MetricsConfig struct {
	Enabled bool
	// prometheus registers with the default registry, see MetricsHandler.
	Exporter string `validate:"omitempty,oneof=otlp prometheus stdout none"`
}

type LoggingConfig struct {
	Enabled bool
	Level   string `validate:"omitempty,oneof=debug info warn error"`

	// Writer receives log lines. Default: os.Stderr
	Writer io.Writer
}

var fieldErrors = map[string]error{
	"Config.ServiceName":       ErrMissingServiceName,
	"Config.Tracing.Exporter":  ErrInvalidTracingExporter,
	"Config.Tracing.SamplePct": ErrInvalidSamplePct,
	"Config.Metrics.Exporter":  ErrInvalidMetricsExporter,
	"Config.Logging.Level":     ErrInvalidLogLevel,
}

// Validate reports every invalid field, each matching its sentinel error.
// Exporter names are checked even for disabled subsystems.
func (c *Config) Validate() error {
	err := configValidator.Struct(c)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		sentinel, ok := fieldErrors[fe.StructNamespace()]
		if !ok {
			errs = append(errs, fmt.Errorf("observe: %s failed %q", fe.StructNamespace(), fe.Tag()))
			continue
		}
		errs = append(errs, fmt.Errorf("%w: %v", sentinel, fe.Value()))
	}
	return errors.Join(errs...)
}

// Logger is a minimal structured logging interface. Implementations are safe
// for concurrent use and never panic.
type Logger interface {
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	Debug(ctx context.Context, msg string, fields ...Field)

	// With returns a logger that adds fields to every entry.
	With(fields ...Field) Logger
}

// Field is one structured log attribute.
type Field struct {
	Key   string
	Value any
}

// F builds a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Observer owns the telemetry providers for the process. Disabled
// subsystems are backed by no-op implementations.
type Observer struct {
	tracer trace.Tracer
	meter  metric.Meter
	logger Logger

	// shutdown holds the provider shutdown funcs in creation order.
	shutdown []func(context.Context) error
}

// NewObserver validates cfg and installs the configured providers as the
// global OpenTelemetry providers.
func NewObserver(ctx context.Context, cfg Config) (*Observer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.Version),
	))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	obs := &Observer{
		tracer: tracenoop.NewTracerProvider().Tracer("noop"),
		meter:  noop.NewMeterProvider().Meter("noop"),
		logger: NopLogger(),
	}

	if cfg.Tracing.Enabled {
		tp, err := newTracerProvider(ctx, cfg.Tracing, res)
		if err != nil {
			return nil, fmt.Errorf("setup tracing: %w", err)
		}
		otel.SetTracerProvider(tp)
		obs.tracer = tp.Tracer(cfg.ServiceName)
		obs.shutdown = append(obs.shutdown, tp.Shutdown)
	}

	if cfg.Metrics.Enabled {
		mp, err := newMeterProvider(ctx, cfg.Metrics, res)
		if err != nil {
			_ = obs.Shutdown(ctx)
			return nil, fmt.Errorf("setup metrics: %w", err)
		}
		otel.SetMeterProvider(mp)
		obs.meter = mp.Meter(cfg.ServiceName)
		obs.shutdown = append(obs.shutdown, mp.Shutdown)
	}

	if cfg.Logging.Enabled {
		w := cfg.Logging.Writer
		if w == nil {
			w = os.Stderr
		}
		obs.logger = NewLoggerWithWriter(cfg.Logging.Level, w).With(F("service", cfg.ServiceName))
	}

	return obs, nil
}

func newTracerProvider(ctx context.Context, cfg TracingConfig, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	exporter, err := NewTracingExporter(ctx, cfg.Exporter)
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler(cfg.SamplePct))),
		sdktrace.WithBatcher(exporter),
	), nil
}

func sampler(pct float64) sdktrace.Sampler {
	switch {
	case pct >= 1:
		return sdktrace.AlwaysSample()
	case pct <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(pct)
	}
}

func newMeterProvider(ctx context.Context, cfg MetricsConfig, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	reader, err := NewMetricsReader(ctx, cfg.Exporter)
	if err != nil {
		return nil, err
	}
	return sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(reader)), nil
}

func (o *Observer) Tracer() trace.Tracer { return o.tracer }
func (o *Observer) Meter() metric.Meter  { return o.meter }
func (o *Observer) Logger() Logger       { return o.logger }

// Shutdown flushes and stops every provider, joining their errors.
func (o *Observer) Shutdown(ctx context.Context) error {
	var errs []error
	for _, stop := range o.shutdown {
		if err := stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	o.shutdown = nil
	return errors.Join(errs...)
}
