package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jonwraymond/castgate/observe"
)

// errNoIdentity is an Authenticator returning neither identity nor error.
var errNoIdentity = errors.New("auth: authenticator returned no identity")

// HandlerFunc is a protected handler. id is the identity that passed the gate.
type HandlerFunc func(w http.ResponseWriter, r *http.Request, id *Identity)

// ErrorWriter renders a gate failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// GateConfig configures a Gate.
type GateConfig struct {
	// Logger receives one line per denied request. Default: no-op.
	Logger observe.Logger

	// Middleware instruments each decision. Default: no-op.
	Middleware *observe.Middleware

	// ErrorWriter renders failures. Default: WriteError.
	ErrorWriter ErrorWriter
}

// Gate enforces a required permission in front of handlers. Each request is
// authenticated, then checked, and the handler only runs when both pass.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: failures are *AuthError except internal errors from the
//   Authenticator, which pass through unchanged.
type Gate struct {
	authn       Authenticator
	logger      observe.Logger
	mw          *observe.Middleware
	errorWriter ErrorWriter
}

// NewGate creates a gate over authn.
func NewGate(authn Authenticator, config GateConfig) *Gate {
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	if config.Middleware == nil {
		config.Middleware = observe.NewMiddleware(nil, nil, nil)
	}
	if config.ErrorWriter == nil {
		config.ErrorWriter = WriteError
	}
	return &Gate{
		authn:       authn,
		logger:      config.Logger.With(observe.F("component", "auth.gate")),
		mw:          config.Middleware,
		errorWriter: config.ErrorWriter,
	}
}

// Authorize authenticates req and checks permission. It is transport
// independent; Require and Middleware build on it.
func (g *Gate) Authorize(ctx context.Context, req *AuthRequest, permission string) (*Identity, error) {
	var id *Identity
	op := observe.Operation{Name: "auth.gate", Permission: permission}

	err := g.mw.Run(ctx, op, func(ctx context.Context) error {
		authed, err := g.authn.Authenticate(ctx, req)
		if err != nil {
			return err
		}
		if authed == nil {
			return errNoIdentity
		}
		if err := CheckPermission(permission, authed.Claims); err != nil {
			return err
		}
		id = authed
		return nil
	})
	if err != nil {
		g.logDenial(ctx, req, permission, err)
		return nil, err
	}
	return id, nil
}

// Require wraps h so it only runs for requests holding permission. The
// identity is passed to h and attached to the request context.
func (g *Gate) Require(permission string, h HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := g.Authorize(r.Context(), NewAuthRequest(r), permission)
		if err != nil {
			g.errorWriter(w, r, err)
			return
		}
		h(w, r.WithContext(ContextWithIdentity(r.Context(), id)), id)
	})
}

// Middleware returns the gate as router middleware. Handlers read the
// identity with IdentityFrom.
func (g *Gate) Middleware(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return g.Require(permission, func(w http.ResponseWriter, r *http.Request, _ *Identity) {
			next.ServeHTTP(w, r)
		})
	}
}

func (g *Gate) logDenial(ctx context.Context, req *AuthRequest, permission string, err error) {
	var ae *AuthError
	if !errors.As(err, &ae) {
		g.logger.Error(ctx, "authorization failed",
			observe.F("permission", permission),
			observe.F("resource", req.Resource),
			observe.F("error", err),
		)
		return
	}

	fields := []observe.Field{
		observe.F("code", string(ae.Code)),
		observe.F("status", ae.Status),
		observe.F("permission", permission),
		observe.F("resource", req.Resource),
	}
	if ae.Code == CodeKeySetUnavailable {
		g.logger.Error(ctx, "access denied", append(fields, observe.F("error", ae.Cause))...)
		return
	}
	g.logger.Warn(ctx, "access denied", fields...)
}

// ErrorBody is the JSON body written for every failure.
type ErrorBody struct {
	Success bool   `json:"success"`
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// ErrorStatus returns the status and caller-safe message for err. Errors
// that are not *AuthError map to 500.
func ErrorStatus(err error) (int, string) {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Status, ae.Description
	}
	return http.StatusInternalServerError, "Internal server error"
}

// WriteError writes err as {"success": false, "error": status, "message": text}.
func WriteError(w http.ResponseWriter, _ *http.Request, err error) {
	status, message := ErrorStatus(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorBody{Success: false, Error: status, Message: message})
}
