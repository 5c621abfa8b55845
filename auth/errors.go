package auth

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for authentication and authorization.
var (
	// Authentication errors
	ErrMissingCredentials = errors.New("auth: missing credentials")
	ErrTokenMalformed     = errors.New("auth: token malformed")
	ErrKeyNotFound        = errors.New("auth: signing key not found")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrInvalidClaims      = errors.New("auth: invalid claims")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// Authorization errors
	ErrForbidden = errors.New("auth: access denied")

	// Key set errors
	ErrKeySetUnavailable = errors.New("auth: signing key set unavailable")
)

// Code is the machine-readable kind of an AuthError.
type Code string

const (
	CodeMissingHeader     Code = "missing_header"
	CodeMalformedHeader   Code = "malformed_header"
	CodeKeyNotFound       Code = "key_not_found"
	CodeTokenExpired      Code = "token_expired"
	CodeInvalidClaims     Code = "invalid_claims"
	CodeInvalidToken      Code = "invalid_token"
	CodeNoPermission      Code = "no_permission"
	CodeKeySetUnavailable Code = "key_set_unavailable"
)

var codeSentinels = map[Code]error{
	CodeMissingHeader:     ErrMissingCredentials,
	CodeMalformedHeader:   ErrTokenMalformed,
	CodeKeyNotFound:       ErrKeyNotFound,
	CodeTokenExpired:      ErrTokenExpired,
	CodeInvalidClaims:     ErrInvalidClaims,
	CodeInvalidToken:      ErrInvalidCredentials,
	CodeNoPermission:      ErrForbidden,
	CodeKeySetUnavailable: ErrKeySetUnavailable,
}

// AuthError is a gate failure. Status is the HTTP status the boundary layer
// should answer with and Description is safe to show to the caller.
type AuthError struct {
	Code        Code
	Description string
	Status      int

	// Cause is the underlying error if any. It is never shown to callers.
	Cause error
}

// Error returns the error message.
func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("auth: %s: %s: %v", e.Code, e.Description, e.Cause)
	}
	return fmt.Sprintf("auth: %s: %s", e.Code, e.Description)
}

// Unwrap returns the cause error for errors.Is/As support.
func (e *AuthError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel for this error's code.
func (e *AuthError) Is(target error) bool {
	sentinel, ok := codeSentinels[e.Code]
	return ok && sentinel == target
}

// ErrorCode returns the code as a string for telemetry.
func (e *AuthError) ErrorCode() string {
	return string(e.Code)
}

func newAuthError(code Code, status int, description string, cause error) *AuthError {
	return &AuthError{Code: code, Description: description, Status: status, Cause: cause}
}

func errMissingHeader() *AuthError {
	return newAuthError(CodeMissingHeader, http.StatusUnauthorized, "Authorization is missing", nil)
}

func errMalformedHeader(description string) *AuthError {
	return newAuthError(CodeMalformedHeader, http.StatusUnauthorized, description, nil)
}

func errKeyNotFound(cause error) *AuthError {
	return newAuthError(CodeKeyNotFound, http.StatusBadRequest, "Unable to find the appropriate key", cause)
}

func errTokenExpired(cause error) *AuthError {
	return newAuthError(CodeTokenExpired, http.StatusUnauthorized, "Token expired", cause)
}

func errInvalidClaims(cause error) *AuthError {
	return newAuthError(CodeInvalidClaims, http.StatusUnauthorized,
		"Incorrect claims. Please, check the audience and issuer", cause)
}

func errInvalidToken(cause error) *AuthError {
	return newAuthError(CodeInvalidToken, http.StatusBadRequest, "Unable to parse authentication token", cause)
}

func errPermissionsMissing() *AuthError {
	return newAuthError(CodeInvalidClaims, http.StatusBadRequest, "Permissions not included in JWT", nil)
}

func errNoPermission(permission string) *AuthError {
	return newAuthError(CodeNoPermission, http.StatusUnauthorized,
		fmt.Sprintf("User has no %s on this resource", permission), nil)
}

func errKeySetUnavailable(cause error) *AuthError {
	return newAuthError(CodeKeySetUnavailable, http.StatusServiceUnavailable,
		"Signing keys are not available", cause)
}
