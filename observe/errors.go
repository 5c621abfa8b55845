package observe

import "errors"

// Errors matched by Config.Validate and the exporter constructors.
var (
	ErrMissingServiceName     = errors.New("observe: service name is required")
	ErrInvalidSamplePct       = errors.New("observe: sample percentage must be between 0.0 and 1.0")
	ErrInvalidTracingExporter = errors.New("observe: invalid tracing exporter")
	ErrInvalidMetricsExporter = errors.New("observe: invalid metrics exporter")
	ErrInvalidLogLevel        = errors.New("observe: invalid log level")

	// ErrEndpointNotConfigured is returned for the otlp exporters when no
	// OTEL_EXPORTER_OTLP_* endpoint variable is set.
	ErrEndpointNotConfigured = errors.New("observe: endpoint not configured")
)

// ErrMissingOperationName is returned by Middleware.Run for an unnamed Operation.
var ErrMissingOperationName = errors.New("observe: operation name is required")

// RedactedFields are log field keys whose values are never written. The gate
// logs request metadata, so the bearer header and token fields are listed
// next to the store DSN.
var RedactedFields = []string{
	"authorization",
	"Authorization",
	"token",
	"access_token",
	"password",
	"secret",
	"credential",
	"dsn",
}
