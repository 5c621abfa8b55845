package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/jonwraymond/castgate/auth"
	"github.com/jonwraymond/castgate/casting"
	"github.com/jonwraymond/castgate/health"
	"github.com/jonwraymond/castgate/observe"
)

// App is the assembled service.
type App struct {
	cfg      *Config
	observer *observe.Observer
	logger   observe.Logger
	keys     *auth.JWKSKeyProvider
	store    casting.Store
	handler  http.Handler
}

// New assembles the service from cfg. The signing key set is loaded before
// New returns; when it cannot be fetched New fails rather than serving a
// gate that rejects every request.
func New(ctx context.Context, cfg *Config) (*App, error) {
	observer, err := observe.NewObserver(ctx, cfg.ObserveConfig())
	if err != nil {
		return nil, fmt.Errorf("server: observer: %w", err)
	}
	logger := observer.Logger()

	app := &App{cfg: cfg, observer: observer, logger: logger}
	if err := app.init(ctx); err != nil {
		_ = app.Close(context.WithoutCancel(ctx))
		return nil, err
	}
	return app, nil
}

func (a *App) init(ctx context.Context) error {
	mw, err := observe.MiddlewareFromObserver(a.observer)
	if err != nil {
		return fmt.Errorf("server: instrumentation: %w", err)
	}

	a.keys = auth.NewJWKSKeyProvider(a.cfg.JWKSConfig(a.logger))
	if err := a.keys.Load(ctx); err != nil {
		return fmt.Errorf("server: load signing keys: %w", err)
	}

	a.store, err = OpenStore(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}

	gate := auth.NewGate(auth.NewJWTAuthenticator(a.cfg.JWTConfig(), a.keys), auth.GateConfig{
		Logger:      a.logger,
		Middleware:  mw,
		ErrorWriter: casting.WriteError,
	})

	checks := health.NewAggregator(health.AggregatorConfig{})
	checks.Register(health.NewKeySetChecker(a.keys, 2*a.cfg.JWKSCacheTTL))
	checks.Register(health.NewPingChecker("store", a.store))

	var metrics http.Handler
	if a.cfg.MetricsExporter == "prometheus" {
		metrics = observe.MetricsHandler()
	}

	a.handler = NewRouter(RouterParams{
		Config:     a.cfg,
		Logger:     a.logger,
		Middleware: mw,
		Casting:    casting.NewHandler(a.store, gate, a.logger),
		Health:     checks,
		Metrics:    metrics,
	})
	return nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Logger returns the service logger.
func (a *App) Logger() observe.Logger {
	return a.logger
}

// Run serves HTTP on cfg.AppAddr until ctx is done, then shuts down
// gracefully within AppShutdownTimeout.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.AppAddr)
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      a.handler,
		ReadTimeout:  a.cfg.AppReadTimeout,
		WriteTimeout: a.cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info(ctx, "starting http server", observe.F("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if stopped, err := awaitServe(ctx, errCh); stopped {
		return err
	}

	a.logger.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.AppShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: graceful shutdown: %w", err)
	}
	return nil
}

// Close releases the store and flushes telemetry.
func (a *App) Close(ctx context.Context) error {
	if a.store != nil {
		a.store.Close()
	}
	if err := a.observer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: observer shutdown: %w", err)
	}
	return nil
}

// awaitServe blocks until ctx is done or the server goroutine finishes.
// stopped is true when the server ended on its own; err is nil when it was
// closed cleanly and the channel closed without a value.
func awaitServe(ctx context.Context, errCh <-chan error) (stopped bool, err error) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return true, nil
		}
		return true, fmt.Errorf("server: serve: %w", err)
	case <-ctx.Done():
		return false, nil
	}
}
