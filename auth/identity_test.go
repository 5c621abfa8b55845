package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestNewIdentity(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	iat := exp.Add(-2 * time.Hour)
	claims := jwt.MapClaims{
		"sub":         "auth0|42",
		"exp":         float64(exp.Unix()),
		"iat":         float64(iat.Unix()),
		"permissions": []any{"get:actors", 7, "update:actors"},
		"custom":      "kept",
	}

	id := NewIdentity(claims)

	if id.Principal != "auth0|42" {
		t.Errorf("Principal = %q", id.Principal)
	}
	if !id.ExpiresAt.Equal(exp) {
		t.Errorf("ExpiresAt = %v, want %v", id.ExpiresAt, exp)
	}
	if !id.IssuedAt.Equal(iat) {
		t.Errorf("IssuedAt = %v, want %v", id.IssuedAt, iat)
	}
	if len(id.Permissions) != 2 || id.Permissions[0] != "get:actors" || id.Permissions[1] != "update:actors" {
		t.Errorf("Permissions = %v", id.Permissions)
	}
	if id.Claims["custom"] != "kept" {
		t.Errorf("Claims[custom] = %v, want raw claims passed through", id.Claims["custom"])
	}
}

func TestIdentity_HasPermission(t *testing.T) {
	tests := []struct {
		name        string
		permissions []string
		check       string
		want        bool
	}{
		{"has permission", []string{"get:actors", "get:movies"}, "get:movies", true},
		{"no permission", []string{"get:actors"}, "delete:actors", false},
		{"empty permissions", nil, "get:actors", false},
		{"no partial match", []string{"get:actors"}, "get:actor", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := &Identity{Permissions: tt.permissions}
			if got := id.HasPermission(tt.check); got != tt.want {
				t.Errorf("HasPermission(%q) = %v, want %v", tt.check, got, tt.want)
			}
		})
	}
}

func TestIdentity_ExpiredAt(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{"no exp never expires", time.Time{}, false},
		{"future", now.Add(time.Hour), false},
		{"exactly now", now, true},
		{"past", now.Add(-time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := &Identity{ExpiresAt: tt.expiresAt}
			if got := id.ExpiredAt(now); got != tt.want {
				t.Errorf("ExpiredAt() = %v, want %v", got, tt.want)
			}
		})
	}
}
