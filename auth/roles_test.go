package auth

import (
	"reflect"
	"testing"
)

func TestRoleCatalog_Permissions(t *testing.T) {
	catalog := RoleCatalog{
		"viewer": {Permissions: []string{"get:actors"}},
		"editor": {Permissions: []string{"update:actors", "get:actors"}, Inherits: []string{"viewer"}},
		"admin":  {Permissions: []string{"delete:actors"}, Inherits: []string{"editor"}},
		"loop-a": {Permissions: []string{"a"}, Inherits: []string{"loop-b"}},
		"loop-b": {Permissions: []string{"b"}, Inherits: []string{"loop-a"}},
	}

	tests := []struct {
		name  string
		roles []string
		want  []string
	}{
		{"single", []string{"viewer"}, []string{"get:actors"}},
		{"inherited and de-duplicated", []string{"editor"}, []string{"get:actors", "update:actors"}},
		{"transitive", []string{"admin"}, []string{"delete:actors", "get:actors", "update:actors"}},
		{"cycle terminates", []string{"loop-a"}, []string{"a", "b"}},
		{"unknown role", []string{"ghost"}, []string{}},
		{"no roles", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := catalog.Permissions(tt.roles...)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Permissions(%v) = %v, want %v", tt.roles, got, tt.want)
			}
		})
	}
}

func TestRoleCatalog_Grants(t *testing.T) {
	catalog := RoleCatalog{
		"viewer": {Permissions: []string{"get:actors"}},
		"admin":  {Permissions: []string{"delete:actors"}, Inherits: []string{"viewer"}},
	}

	if !catalog.Grants("admin", "get:actors") {
		t.Error("admin should inherit get:actors")
	}
	if catalog.Grants("viewer", "delete:actors") {
		t.Error("viewer should not hold delete:actors")
	}
	if got := catalog.Roles(); !reflect.DeepEqual(got, []string{"admin", "viewer"}) {
		t.Errorf("Roles() = %v", got)
	}
}
