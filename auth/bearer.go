package auth

import "strings"

// HeaderAuthorization is the header carrying the bearer token.
const HeaderAuthorization = "Authorization"

// ExtractBearerToken returns the token from an "Authorization: Bearer <token>"
// header. The scheme keyword is matched case-insensitively and parts are split
// on any run of whitespace.
func ExtractBearerToken(req *AuthRequest) (string, error) {
	header, ok := req.LookupHeader(HeaderAuthorization)
	if !ok {
		return "", errMissingHeader()
	}

	parts := strings.Fields(header)
	switch {
	case len(parts) == 0 || !strings.EqualFold(parts[0], "bearer"):
		return "", errMalformedHeader("Authorization header must start with Bearer keyword")
	case len(parts) == 1:
		return "", errMalformedHeader("Token not found in the header")
	case len(parts) > 2:
		return "", errMalformedHeader("Authorization header must be a bearer token")
	}
	return parts[1], nil
}
