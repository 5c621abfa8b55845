// Package observe provides the logging and telemetry primitives used by the
// gate and the HTTP service.
//
// It wraps OpenTelemetry tracing and metrics behind small interfaces, ships a
// JSON structured logger that redacts credentials, and builds exporters from
// names (stdout, otlp, prometheus, none). Consumers wrap operations with
// Middleware.Run or HTTP handlers with Middleware.HTTP.
package observe
