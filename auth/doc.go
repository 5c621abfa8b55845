// Package auth provides the authorization gate for castgate's HTTP API.
//
// A request passes the gate in three steps: the bearer token is taken from
// the Authorization header (ExtractBearerToken), verified against a key set
// published at the identity provider's JWKS endpoint (JWTAuthenticator), and
// checked for the route's required permission (CheckPermission). Any failure
// is an *AuthError carrying a code, a caller-safe description and the HTTP
// status to answer with, and the protected handler never runs.
//
// Keys come from a KeyProvider. StaticKeyProvider serves a fixed KeySet;
// JWKSKeyProvider loads the JWKS document once at startup with retry and
// keeps it fresh on cache expiry or an unknown key ID, swapping whole sets
// so readers never see a partial update.
package auth
