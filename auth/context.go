package auth

import "context"

type identityCtxKey struct{}

// ContextWithIdentity attaches the identity the gate admitted to ctx.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// IdentityFrom returns the identity admitted for this request, if any.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(*Identity)
	return id, ok && id != nil
}

// SubjectFrom returns the sub claim of the admitted identity, or "" for
// requests that never passed the gate.
func SubjectFrom(ctx context.Context) string {
	if id, ok := IdentityFrom(ctx); ok {
		return id.Principal
	}
	return ""
}

// PermissionsFrom returns the permissions granted to the admitted identity.
func PermissionsFrom(ctx context.Context) []string {
	if id, ok := IdentityFrom(ctx); ok {
		return id.Permissions
	}
	return nil
}
