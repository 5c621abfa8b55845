package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestAuthError_IsMatchesSentinel(t *testing.T) {
	tests := []struct {
		err      *AuthError
		sentinel error
		status   int
	}{
		{errMissingHeader(), ErrMissingCredentials, http.StatusUnauthorized},
		{errMalformedHeader("Authorization malformed"), ErrTokenMalformed, http.StatusUnauthorized},
		{errKeyNotFound(nil), ErrKeyNotFound, http.StatusBadRequest},
		{errTokenExpired(nil), ErrTokenExpired, http.StatusUnauthorized},
		{errInvalidClaims(nil), ErrInvalidClaims, http.StatusUnauthorized},
		{errInvalidToken(nil), ErrInvalidCredentials, http.StatusBadRequest},
		{errPermissionsMissing(), ErrInvalidClaims, http.StatusBadRequest},
		{errNoPermission("get:actors"), ErrForbidden, http.StatusUnauthorized},
		{errKeySetUnavailable(nil), ErrKeySetUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.sentinel)
			}
			if tt.err.Status != tt.status {
				t.Errorf("Status = %d, want %d", tt.err.Status, tt.status)
			}
			if tt.err.ErrorCode() != string(tt.err.Code) {
				t.Errorf("ErrorCode() = %q", tt.err.ErrorCode())
			}
		})
	}
}

func TestAuthError_DoesNotMatchOtherSentinels(t *testing.T) {
	err := errTokenExpired(nil)
	for _, other := range []error{ErrMissingCredentials, ErrForbidden, ErrInvalidClaims, ErrKeyNotFound} {
		if errors.Is(err, other) {
			t.Errorf("token_expired should not match %v", other)
		}
	}
}

func TestAuthError_UnwrapAndAs(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	wrapped := fmt.Errorf("gate: %w", errKeySetUnavailable(cause))

	var ae *AuthError
	if !errors.As(wrapped, &ae) {
		t.Fatal("errors.As() = false")
	}
	if ae.Code != CodeKeySetUnavailable {
		t.Errorf("Code = %q", ae.Code)
	}
	if !errors.Is(wrapped, cause) {
		t.Error("cause should be reachable through Unwrap")
	}
	if !strings.Contains(ae.Error(), "dial tcp: timeout") {
		t.Errorf("Error() = %q, want cause included", ae.Error())
	}
}

func TestErrNoPermission_Description(t *testing.T) {
	err := errNoPermission("create:actors")
	if err.Description != "User has no create:actors on this resource" {
		t.Errorf("Description = %q", err.Description)
	}
}
