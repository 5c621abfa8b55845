package auth

import "sort"

// RoleConfig defines permissions for a role.
type RoleConfig struct {
	// Permissions are explicit permission strings (e.g., "get:actors").
	Permissions []string

	// Inherits lists roles this role inherits from.
	Inherits []string
}

// RoleCatalog maps role names to their configuration. It documents which
// permissions an identity provider should grant each role and lets tests
// mint tokens per role.
type RoleCatalog map[string]RoleConfig

// Roles returns the role names in sorted order.
func (c RoleCatalog) Roles() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Permissions returns the sorted, de-duplicated permissions granted by roles
// including everything they inherit. Unknown roles grant nothing.
func (c RoleCatalog) Permissions(roles ...string) []string {
	seen := make(map[string]bool)
	for _, role := range c.expand(roles) {
		for _, p := range c[role].Permissions {
			seen[p] = true
		}
	}

	perms := make([]string, 0, len(seen))
	for p := range seen {
		perms = append(perms, p)
	}
	sort.Strings(perms)
	return perms
}

// Grants reports whether role, directly or by inheritance, holds permission.
func (c RoleCatalog) Grants(role, permission string) bool {
	for _, p := range c.Permissions(role) {
		if p == permission {
			return true
		}
	}
	return false
}

// expand walks inheritance breadth-first, visiting each role once.
func (c RoleCatalog) expand(roles []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(roles))

	queue := append([]string{}, roles...)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if seen[current] {
			continue
		}
		seen[current] = true
		result = append(result, current)

		if role, ok := c[current]; ok {
			for _, inherited := range role.Inherits {
				if !seen[inherited] {
					queue = append(queue, inherited)
				}
			}
		}
	}

	return result
}
