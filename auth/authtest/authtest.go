// Package authtest provides a token issuer backed by a real RSA key and an
// in-process JWKS endpoint, so gate tests never reach the network.
package authtest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Defaults used by NewIssuer.
const (
	DefaultDomain   = "castgate.test"
	DefaultAudience = "agency"
	DefaultKeyID    = "test-key-1"
)

var sharedKey = sync.OnceValue(func() *rsa.PrivateKey {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(fmt.Sprintf("authtest: generate RSA key: %v", err))
	}
	return key
})

// Issuer mints RS256 tokens the way the identity provider would.
type Issuer struct {
	Domain   string
	Audience string

	// Now is the clock used for iat/exp. Default: time.Now
	Now func() time.Time

	mu   sync.RWMutex
	keys []signingKey
}

type signingKey struct {
	kid string
	key *rsa.PrivateKey
}

// NewIssuer returns an issuer for DefaultDomain and DefaultAudience signing
// with a process-wide 2048-bit key under DefaultKeyID.
func NewIssuer() *Issuer {
	return &Issuer{
		Domain:   DefaultDomain,
		Audience: DefaultAudience,
		Now:      time.Now,
		keys:     []signingKey{{kid: DefaultKeyID, key: sharedKey()}},
	}
}

// Rotate generates a fresh key under kid and makes it the signing key. The
// previous keys stay published.
func (i *Issuer) Rotate(kid string) error {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return fmt.Errorf("generate RSA key: %w", err)
	}
	i.mu.Lock()
	i.keys = append(i.keys, signingKey{kid: kid, key: key})
	i.mu.Unlock()
	return nil
}

// IssuerURL returns the iss claim value.
func (i *Issuer) IssuerURL() string {
	return "https://" + i.Domain + "/"
}

// KeyID returns the kid of the current signing key.
func (i *Issuer) KeyID() string {
	return i.current().kid
}

// PublicKey returns the current signing key's public half.
func (i *Issuer) PublicKey() *rsa.PublicKey {
	return &i.current().key.PublicKey
}

func (i *Issuer) current() signingKey {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.keys[len(i.keys)-1]
}

// Claims returns a valid claim set carrying permissions, expiring in an hour.
func (i *Issuer) Claims(permissions ...string) jwt.MapClaims {
	now := i.Now()
	perms := make([]any, len(permissions))
	for n, p := range permissions {
		perms[n] = p
	}
	return jwt.MapClaims{
		"iss":         i.IssuerURL(),
		"sub":         "auth0|castgate-test",
		"aud":         []any{i.Audience, "https://" + i.Domain + "/userinfo"},
		"iat":         now.Unix(),
		"exp":         now.Add(time.Hour).Unix(),
		"permissions": perms,
	}
}

// Token mints a valid token carrying permissions.
func (i *Issuer) Token(permissions ...string) string {
	token, err := i.Sign(i.Claims(permissions...))
	if err != nil {
		panic(fmt.Sprintf("authtest: sign token: %v", err))
	}
	return token
}

// Sign signs claims with the current key, setting the kid header.
func (i *Issuer) Sign(claims jwt.MapClaims) (string, error) {
	k := i.current()
	return SignWithHeader(k.key, claims, map[string]any{"kid": k.kid})
}

// SignWithHeader signs claims with key using RS256, applying header fields
// on top of the defaults. A nil value removes the field.
func SignWithHeader(key *rsa.PrivateKey, claims jwt.MapClaims, header map[string]any) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	for k, v := range header {
		if v == nil {
			delete(token.Header, k)
			continue
		}
		token.Header[k] = v
	}
	return token.SignedString(key)
}

// SigningKey returns the current private key for tests that forge headers.
func (i *Issuer) SigningKey() *rsa.PrivateKey {
	return i.current().key
}

// JWKS returns the JSON Web Key Set publishing every key.
func (i *Issuer) JWKS() []byte {
	i.mu.RLock()
	defer i.mu.RUnlock()

	type jwk struct {
		Kty string `json:"kty"`
		Kid string `json:"kid"`
		Use string `json:"use"`
		Alg string `json:"alg"`
		N   string `json:"n"`
		E   string `json:"e"`
	}
	doc := struct {
		Keys []jwk `json:"keys"`
	}{}
	for _, k := range i.keys {
		pub := k.key.PublicKey
		doc.Keys = append(doc.Keys, jwk{
			Kty: "RSA",
			Kid: k.kid,
			Use: "sig",
			Alg: "RS256",
			N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		})
	}
	data, _ := json.Marshal(doc)
	return data
}

// JWKSServer serves an issuer's JWKS and counts requests.
type JWKSServer struct {
	*httptest.Server

	issuer *Issuer
	hits   atomic.Int64
	status atomic.Int64
}

// NewJWKSServer starts a server answering every request with the issuer's
// key set. Callers must Close it.
func NewJWKSServer(issuer *Issuer) *JWKSServer {
	s := &JWKSServer{issuer: issuer}
	s.status.Store(http.StatusOK)
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

func (s *JWKSServer) serve(w http.ResponseWriter, _ *http.Request) {
	s.hits.Add(1)
	status := int(s.status.Load())
	if status != http.StatusOK {
		http.Error(w, http.StatusText(status), status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(s.issuer.JWKS())
}

// Hits returns the number of requests served.
func (s *JWKSServer) Hits() int {
	return int(s.hits.Load())
}

// SetStatus makes later responses fail with status; http.StatusOK restores
// normal service.
func (s *JWKSServer) SetStatus(status int) {
	s.status.Store(int64(status))
}
