package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig configures the JWT authenticator.
type JWTConfig struct {
	// Issuer is the expected token issuer (iss claim).
	Issuer string

	// Audience is the expected token audience (aud claim).
	Audience string

	// AllowedAlgorithms lists the accepted signing algorithms.
	// Default: ["RS256"]
	AllowedAlgorithms []string

	// Leeway is the clock skew tolerated for exp/nbf/iat.
	Leeway time.Duration

	// Now returns the current time for claim validation. Default: time.Now
	Now func() time.Time
}

// KeyProvider retrieves signing keys for JWT validation.
type KeyProvider interface {
	// GetKey returns the key for the given key ID.
	GetKey(ctx context.Context, keyID string) (any, error)
}

// StaticKeyProvider serves a fixed KeySet.
type StaticKeyProvider struct {
	set *KeySet
}

// NewStaticKeyProvider creates a static key provider.
func NewStaticKeyProvider(set *KeySet) *StaticKeyProvider {
	return &StaticKeyProvider{set: set}
}

// GetKey returns the key for keyID.
func (p *StaticKeyProvider) GetKey(_ context.Context, keyID string) (any, error) {
	if key, ok := p.set.Lookup(keyID); ok {
		return key, nil
	}
	return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, keyID)
}

// JWTAuthenticator verifies bearer tokens against a KeyProvider.
type JWTAuthenticator struct {
	config      JWTConfig
	configErr   error
	keyProvider KeyProvider
	parser      *jwt.Parser
}

// ErrIncompleteConfig is returned by Verify when the authenticator was built
// without an expected Issuer or Audience. Such an authenticator rejects every
// token.
var ErrIncompleteConfig = errors.New("auth: JWTConfig requires Issuer and Audience")

// Validate reports a config that cannot pin tokens to one issuer and audience.
func (c JWTConfig) Validate() error {
	var missing []string
	if c.Issuer == "" {
		missing = append(missing, "Issuer")
	}
	if c.Audience == "" {
		missing = append(missing, "Audience")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncompleteConfig, strings.Join(missing, ", "))
	}
	return nil
}

// NewJWTAuthenticator creates a new JWT authenticator.
func NewJWTAuthenticator(config JWTConfig, keyProvider KeyProvider) *JWTAuthenticator {
	if len(config.AllowedAlgorithms) == 0 {
		config.AllowedAlgorithms = []string{"RS256"}
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(config.AllowedAlgorithms),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(config.Now),
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(config.Leeway))
	}

	return &JWTAuthenticator{
		config:      config,
		configErr:   config.Validate(),
		keyProvider: keyProvider,
		parser:      jwt.NewParser(opts...),
	}
}

// Verify checks the token's key ID, signature, expiry, audience and issuer
// and returns its claims unchanged. Failures are *AuthError values, except
// ErrIncompleteConfig which is internal.
func (a *JWTAuthenticator) Verify(ctx context.Context, tokenString string) (jwt.MapClaims, error) {
	if a.configErr != nil {
		return nil, a.configErr
	}
	claims := jwt.MapClaims{}
	_, err := a.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errMalformedHeader("Authorization malformed")
		}
		key, err := a.keyProvider.GetKey(ctx, kid)
		if err != nil {
			if errors.Is(err, ErrKeySetUnavailable) {
				return nil, errKeySetUnavailable(err)
			}
			return nil, errKeyNotFound(err)
		}
		return key, nil
	})
	if err != nil {
		return nil, classifyParseError(err)
	}
	return claims, nil
}

// classifyParseError maps jwt parser errors onto the gate taxonomy. Errors
// raised by the key function are already *AuthError and pass through.
func classifyParseError(err error) error {
	var ae *AuthError
	switch {
	case errors.As(err, &ae):
		return ae
	case errors.Is(err, jwt.ErrTokenExpired):
		return errTokenExpired(err)
	case errors.Is(err, jwt.ErrTokenInvalidAudience),
		errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
		errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return errInvalidClaims(err)
	default:
		return errInvalidToken(err)
	}
}

// Authenticate extracts and verifies the bearer token. Token failures are
// *AuthError, including an unavailable key set (503).
func (a *JWTAuthenticator) Authenticate(ctx context.Context, req *AuthRequest) (*Identity, error) {
	token, err := ExtractBearerToken(req)
	if err != nil {
		return nil, err
	}
	claims, err := a.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	return NewIdentity(claims), nil
}

// Ensure JWTAuthenticator implements Authenticator
var _ Authenticator = (*JWTAuthenticator)(nil)

// Ensure StaticKeyProvider implements KeyProvider
var _ KeyProvider = (*StaticKeyProvider)(nil)
