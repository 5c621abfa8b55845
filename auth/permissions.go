package auth

import "github.com/golang-jwt/jwt/v5"

// PermissionsClaim is the claim holding the token's permission strings.
const PermissionsClaim = "permissions"

// CheckPermission returns nil when permission is listed in the claims'
// permissions array. An absent or non-array claim is an invalid_claims
// error; a missing permission is a no_permission error.
func CheckPermission(permission string, claims jwt.MapClaims) error {
	raw, ok := claims[PermissionsClaim]
	if !ok {
		return errPermissionsMissing()
	}

	switch perms := raw.(type) {
	case []any:
		for _, p := range perms {
			if s, ok := p.(string); ok && s == permission {
				return nil
			}
		}
	case []string:
		for _, s := range perms {
			if s == permission {
				return nil
			}
		}
	default:
		return errPermissionsMissing()
	}
	return errNoPermission(permission)
}

func permissionStrings(raw any) []string {
	switch perms := raw.(type) {
	case []string:
		return append([]string(nil), perms...)
	case []any:
		out := make([]string, 0, len(perms))
		for _, p := range perms {
			if s, ok := p.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
