package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/jonwraymond/castgate/auth"
	"github.com/jonwraymond/castgate/observe"
	"github.com/jonwraymond/castgate/secret"
)

// ServiceName identifies the service in telemetry.
const ServiceName = "castgate"

// Config holds runtime configuration for the service.
type Config struct {
	AppEnv             string        `envconfig:"APP_ENV" default:"development"`
	AppAddr            string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout     time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout    time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout  time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`
	AppShutdownTimeout time.Duration `envconfig:"APP_SHUTDOWN_TIMEOUT" default:"10s"`

	Auth0Domain    string   `envconfig:"AUTH0_DOMAIN" default:"dev-ehvlmutg.us.auth0.com"`
	Auth0Audience  string   `envconfig:"AUTH0_AUDIENCE" default:"agency"`
	AuthAlgorithms []string `envconfig:"AUTH_ALGORITHMS" default:"RS256"`

	// JWKSURL overrides the key set location derived from Auth0Domain.
	JWKSURL           string        `envconfig:"JWKS_URL"`
	JWKSCacheTTL      time.Duration `envconfig:"JWKS_CACHE_TTL" default:"1h"`
	JWKSMinRefresh    time.Duration `envconfig:"JWKS_MIN_REFRESH" default:"1m"`
	JWKSFetchTimeout  time.Duration `envconfig:"JWKS_FETCH_TIMEOUT" default:"5s"`
	JWKSFetchAttempts int           `envconfig:"JWKS_FETCH_ATTEMPTS" default:"3"`

	// DatabaseURL selects PostgreSQL; empty runs on the in-memory store.
	// It may be a secretref, e.g. secretref:file:/run/secrets/database_url.
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	DatabaseMigrate bool   `envconfig:"DATABASE_MIGRATE" default:"true"`

	LogLevel         string  `envconfig:"LOG_LEVEL" default:"info"`
	TracingExporter  string  `envconfig:"TRACING_EXPORTER" default:"none"`
	TracingSamplePct float64 `envconfig:"TRACING_SAMPLE_PCT" default:"1.0"`
	MetricsExporter  string  `envconfig:"METRICS_EXPORTER" default:"prometheus"`

	// RateLimitPerMinute caps requests per client IP; 0 disables the limit.
	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`

	// LogWriter receives log lines. Default: os.Stderr
	LogWriter io.Writer `ignored:"true"`
}

// LoadConfig reads configuration from environment variables and validates
// it. DATABASE_URL may be a secret reference, resolved with the default
// secret providers.
func LoadConfig(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("server: load config: %w", err)
	}
	dsn, err := secret.NewDefaultResolver().ResolveValue(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("server: resolve DATABASE_URL: %w", err)
	}
	cfg.DatabaseURL = dsn
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.AppAddr == "" {
		errs = append(errs, errors.New("APP_ADDR must be set"))
	}
	if c.Auth0Domain == "" {
		errs = append(errs, errors.New("AUTH0_DOMAIN must be set"))
	}
	if c.Auth0Audience == "" {
		errs = append(errs, errors.New("AUTH0_AUDIENCE must be set"))
	}
	if len(c.AuthAlgorithms) == 0 {
		errs = append(errs, errors.New("AUTH_ALGORITHMS must list at least one algorithm"))
	}
	if c.JWKSFetchAttempts < 1 {
		errs = append(errs, fmt.Errorf("JWKS_FETCH_ATTEMPTS must be >= 1, got %d", c.JWKSFetchAttempts))
	}
	if c.RateLimitPerMinute < 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_PER_MINUTE must be >= 0, got %d", c.RateLimitPerMinute))
	}
	obs := c.ObserveConfig()
	if err := obs.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("server: invalid config: %w", err)
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// JWKSLocation returns JWKSURL, or the well-known location under Auth0Domain.
func (c *Config) JWKSLocation() string {
	if c.JWKSURL != "" {
		return c.JWKSURL
	}
	return auth.IssuerJWKSURL(c.Auth0Domain)
}

// JWTConfig returns the token verification settings.
func (c *Config) JWTConfig() auth.JWTConfig {
	return auth.JWTConfig{
		Issuer:            auth.IssuerURL(c.Auth0Domain),
		Audience:          c.Auth0Audience,
		AllowedAlgorithms: c.AuthAlgorithms,
	}
}

// JWKSConfig returns the key provider settings. logger receives refresh
// events.
func (c *Config) JWKSConfig(logger observe.Logger) auth.JWKSConfig {
	return auth.JWKSConfig{
		URL:                c.JWKSLocation(),
		CacheTTL:           c.JWKSCacheTTL,
		MinRefreshInterval: c.JWKSMinRefresh,
		FetchTimeout:       c.JWKSFetchTimeout,
		FetchAttempts:      c.JWKSFetchAttempts,
		Logger:             logger,
	}
}

// ObserveConfig returns the telemetry settings.
func (c *Config) ObserveConfig() observe.Config {
	return observe.Config{
		ServiceName: ServiceName,
		Version:     Version,
		Tracing: observe.TracingConfig{
			Enabled:   c.TracingExporter != "none",
			Exporter:  c.TracingExporter,
			SamplePct: c.TracingSamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.MetricsExporter != "none",
			Exporter: c.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   c.LogLevel,
			Writer:  c.LogWriter,
		},
	}
}

// Version is the build version, set with -ldflags "-X".
var Version = "dev"
