package auth

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sort"
)

// ErrNoUsableKeys is returned when a JWKS document holds no RSA signing keys.
var ErrNoUsableKeys = errors.New("auth: JWKS document has no usable RSA signing keys")

// KeySet is an immutable mapping from key ID to RSA public key. Providers
// replace a KeySet as a whole; it is never mutated after construction.
type KeySet struct {
	keys map[string]*rsa.PublicKey
}

// NewKeySet copies keys into a new KeySet.
func NewKeySet(keys map[string]*rsa.PublicKey) *KeySet {
	m := make(map[string]*rsa.PublicKey, len(keys))
	for kid, k := range keys {
		m[kid] = k
	}
	return &KeySet{keys: m}
}

// Lookup returns the key for kid.
func (s *KeySet) Lookup(kid string) (*rsa.PublicKey, bool) {
	if s == nil {
		return nil, false
	}
	k, ok := s.keys[kid]
	return k, ok
}

// Len returns the number of keys.
func (s *KeySet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// KeyIDs returns the key IDs in sorted order.
func (s *KeySet) KeyIDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.keys))
	for kid := range s.keys {
		ids = append(ids, kid)
	}
	sort.Strings(ids)
	return ids
}

// JWKSDocument is the JSON document served at a JWKS endpoint.
type JWKSDocument struct {
	Keys []JWK `json:"keys"`
}

// JWK is a single JSON Web Key. Only the RSA public parameters are used.
type JWK struct {
	Kty string   `json:"kty"`
	Kid string   `json:"kid"`
	Use string   `json:"use,omitempty"`
	Alg string   `json:"alg,omitempty"`
	N   string   `json:"n"`
	E   string   `json:"e"`
	X5c []string `json:"x5c,omitempty"`
}

// NewRSAJWK encodes pub as a signing JWK with the given key ID.
func NewRSAJWK(kid string, pub *rsa.PublicKey) JWK {
	return JWK{
		Kty: "RSA",
		Kid: kid,
		Use: "sig",
		Alg: "RS256",
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

// ParseKeySet decodes a JWKS document. Keys that are not RSA, are marked for
// a use other than signing, lack a kid or fail to decode are skipped.
func ParseKeySet(data []byte) (*KeySet, error) {
	var doc JWKSDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode JWKS: %w", err)
	}
	return doc.KeySet()
}

// KeySet builds a KeySet from the document's usable keys.
func (d JWKSDocument) KeySet() (*KeySet, error) {
	keys := make(map[string]*rsa.PublicKey, len(d.Keys))
	for _, jwk := range d.Keys {
		if jwk.Kty != "RSA" || jwk.Kid == "" {
			continue
		}
		if jwk.Use != "" && jwk.Use != "sig" {
			continue
		}
		pub, err := parseRSAPublicKey(jwk)
		if err != nil {
			continue
		}
		keys[jwk.Kid] = pub
	}
	if len(keys) == 0 {
		return nil, ErrNoUsableKeys
	}
	return &KeySet{keys: keys}, nil
}

// parseRSAPublicKey converts a JWK to an RSA public key.
func parseRSAPublicKey(jwk JWK) (*rsa.PublicKey, error) {
	if jwk.N == "" {
		return nil, fmt.Errorf("missing n parameter")
	}
	if jwk.E == "" {
		return nil, fmt.Errorf("missing e parameter")
	}

	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, fmt.Errorf("decode n: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, fmt.Errorf("decode e: %w", err)
	}

	e := new(big.Int).SetBytes(eBytes)
	if !e.IsInt64() || e.Int64() < 3 || e.Int64() > 1<<31-1 {
		return nil, fmt.Errorf("unsupported exponent")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(e.Int64()),
	}, nil
}
