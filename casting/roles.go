package casting

import "github.com/jonwraymond/castgate/auth"

// Permissions required by the casting routes.
const (
	PermGetActors    = "get:actors"
	PermCreateActors = "create:actors"
	PermUpdateActors = "update:actors"
	PermDeleteActors = "delete:actors"
	PermGetMovies    = "get:movies"
	PermCreateMovies = "create:movies"
	PermUpdateMovies = "update:movies"
	PermDeleteMovies = "delete:movies"
)

// Roles is the agency's role catalog as configured at the identity provider.
// Tokens carry the expanded permissions, not the role names.
var Roles = auth.RoleCatalog{
	"assistant": {
		Permissions: []string{PermGetActors, PermGetMovies},
	},
	"director": {
		Permissions: []string{PermCreateActors, PermDeleteActors, PermUpdateActors, PermUpdateMovies},
		Inherits:    []string{"assistant"},
	},
	"producer": {
		Permissions: []string{PermCreateMovies, PermDeleteMovies},
		Inherits:    []string{"director"},
	},
}
