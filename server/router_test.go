package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jonwraymond/castgate/auth"
	"github.com/jonwraymond/castgate/auth/authtest"
	"github.com/jonwraymond/castgate/casting"
	"github.com/jonwraymond/castgate/health"
)

func newTestRouter(t *testing.T, cfg *Config) (http.Handler, *authtest.Issuer) {
	t.Helper()
	issuer := authtest.NewIssuer()
	set, err := auth.ParseKeySet(issuer.JWKS())
	if err != nil {
		t.Fatalf("ParseKeySet() error = %v", err)
	}
	gate := auth.NewGate(auth.NewJWTAuthenticator(auth.JWTConfig{
		Issuer:   issuer.IssuerURL(),
		Audience: issuer.Audience,
	}, auth.NewStaticKeyProvider(set)), auth.GateConfig{ErrorWriter: casting.WriteError})

	store := casting.NewMemoryStore()
	checks := health.NewAggregator(health.AggregatorConfig{})
	checks.Register(health.NewPingChecker("store", store))

	return NewRouter(RouterParams{
		Config:  cfg,
		Casting: casting.NewHandler(store, gate, nil),
		Health:  checks,
	}), issuer
}

func serve(h http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) auth.ErrorBody {
	t.Helper()
	var body auth.ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestRouter_Index(t *testing.T) {
	h, _ := newTestRouter(t, nil)
	rec := serve(h, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["success"] != true || body["message"] != "healthy" {
		t.Errorf("body = %v", body)
	}
}

func TestRouter_ErrorResponses(t *testing.T) {
	h, issuer := newTestRouter(t, nil)
	director := issuer.Token(casting.Roles.Permissions("director")...)

	tests := []struct {
		name        string
		method      string
		path        string
		token       string
		wantStatus  int
		wantMessage string
	}{
		{"get actors without authorization", http.MethodGet, "/actors", "", http.StatusUnauthorized, "Authorization is missing"},
		{"patch without body", http.MethodPatch, "/actors/999999999", director, http.StatusBadRequest, "Bad request"},
		{"unknown route", http.MethodGet, "/studios", "", http.StatusNotFound, "Resource could not be found"},
		{"wrong method", http.MethodPut, "/actors", director, http.StatusMethodNotAllowed, "Method not allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, tt.method, tt.path, tt.token)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			body := errorBody(t, rec)
			if body.Success || body.Error != tt.wantStatus || body.Message != tt.wantMessage {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

func TestRouter_PatchUnknownActorReachesHandler(t *testing.T) {
	h, issuer := newTestRouter(t, nil)
	token := issuer.Token(casting.Roles.Permissions("director")...)

	req := httptest.NewRequest(http.MethodPatch, "/actors/999999999", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 (%s)", rec.Code, rec.Body.String())
	}
	if body := errorBody(t, rec); body.Message != "Resource could not be found" {
		t.Errorf("message = %q", body.Message)
	}
}

func TestRouter_SecurityHeaders(t *testing.T) {
	h, _ := newTestRouter(t, nil)
	rec := serve(h, http.MethodGet, "/", "")

	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("Content-Security-Policy"); got != "default-src 'none'; frame-ancestors 'none'" {
		t.Errorf("Content-Security-Policy = %q", got)
	}
}

func TestRouter_RateLimit(t *testing.T) {
	h, _ := newTestRouter(t, &Config{RateLimitPerMinute: 2})

	for i := range 2 {
		if rec := serve(h, http.MethodGet, "/", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	rec := serve(h, http.MethodGet, "/", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if body := errorBody(t, rec); body.Error != http.StatusTooManyRequests {
		t.Errorf("body = %+v", body)
	}
}

func TestRouter_Health(t *testing.T) {
	h, _ := newTestRouter(t, nil)
	for _, path := range []string{"/healthz", "/readyz", "/health", "/health/store"} {
		if rec := serve(h, http.MethodGet, path, ""); rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d", path, rec.Code)
		}
	}
}

func TestRoutePattern(t *testing.T) {
	if got := routePattern(httptest.NewRequest(http.MethodGet, "/x", nil)); got != "unmatched" {
		t.Errorf("routePattern() without chi context = %q", got)
	}
}
