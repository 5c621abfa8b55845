package auth

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the caller a verified token speaks for.
type Identity struct {
	Principal   string   // sub claim
	Permissions []string // string entries of the permissions claim

	// Claims is the verified claim set exactly as decoded.
	Claims map[string]any

	ExpiresAt time.Time
	IssuedAt  time.Time
}

// NewIdentity builds an Identity from verified token claims. The claim map is
// referenced, not copied.
func NewIdentity(claims jwt.MapClaims) *Identity {
	id := &Identity{
		Claims:      claims,
		Permissions: permissionStrings(claims[PermissionsClaim]),
	}
	id.Principal, _ = claims.GetSubject()
	if exp, _ := claims.GetExpirationTime(); exp != nil {
		id.ExpiresAt = exp.Time
	}
	if iat, _ := claims.GetIssuedAt(); iat != nil {
		id.IssuedAt = iat.Time
	}
	return id
}

// HasPermission reports an exact match in Permissions.
func (id *Identity) HasPermission(perm string) bool {
	return slices.Contains(id.Permissions, perm)
}

// ExpiredAt reports whether the token had expired by now. Identities without
// an exp never expire.
func (id *Identity) ExpiredAt(now time.Time) bool {
	return !id.ExpiresAt.IsZero() && !now.Before(id.ExpiresAt)
}
