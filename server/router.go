package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/jonwraymond/castgate/casting"
	"github.com/jonwraymond/castgate/health"
	"github.com/jonwraymond/castgate/observe"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Config     *Config
	Logger     observe.Logger
	Middleware *observe.Middleware
	Casting    *casting.Handler
	Health     *health.Aggregator

	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// NewRouter constructs the chi router with the middleware stack, the index,
// health probes, metrics and the casting routes.
func NewRouter(params RouterParams) http.Handler {
	if params.Logger == nil {
		params.Logger = observe.NopLogger()
	}
	if params.Middleware == nil {
		params.Middleware = observe.NewMiddleware(nil, nil, params.Logger)
	}

	r := chi.NewRouter()
	for _, mw := range middlewareStack(params) {
		r.Use(mw)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		casting.WriteStatus(w, r, http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		casting.WriteStatus(w, r, http.StatusMethodNotAllowed)
	})

	r.Get("/", index)
	if params.Health != nil {
		health.Mount(r, params.Health)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics)
	}
	if params.Casting != nil {
		params.Casting.MountRoutes(r)
	}
	return r
}

func index(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"message":"healthy","success":true}` + "\n"))
}

func middlewareStack(params RouterParams) []func(http.Handler) http.Handler {
	cfg := params.Config
	if cfg == nil {
		cfg = &Config{}
	}

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		SSLRedirect:           cfg.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})

	timeout := 30 * time.Second
	if cfg.AppRequestTimeout > 0 {
		timeout = cfg.AppRequestTimeout
	}

	middlewares := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		params.Middleware.HTTP(routePattern),
		middleware.Recoverer,
		middleware.Timeout(timeout),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					params.Logger.Warn(r.Context(), "secure headers blocked request",
						observe.F("path", r.URL.Path),
						observe.F("error", err),
					)
					return
				}
				next.ServeHTTP(w, r)
			})
		},
	}
	if cfg.RateLimitPerMinute > 0 {
		middlewares = append(middlewares, httprate.Limit(
			cfg.RateLimitPerMinute, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				casting.WriteStatus(w, r, http.StatusTooManyRequests)
			}),
		))
	}
	return middlewares
}

// routePattern reports the chi pattern that matched r, so telemetry never
// sees raw ids.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
