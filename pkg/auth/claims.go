package auth

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// Claims identifies the yard operator behind a request.
type Claims struct {
	jwt.RegisteredClaims
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles"`
}

// Operator returns the token subject.
func (c Claims) Operator() string { return c.Subject }

// HasRole checks if the claims include the specified role.
func (c Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// HasAnyRole reports whether the claims carry at least one of roles.
func (c Claims) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if c.HasRole(r) {
			return true
		}
	}
	return false
}

const (
	// RoleClerk records payments and runs billing.
	RoleClerk = "clerk"
	// RoleManager can additionally reset payments and rewrite billed amounts.
	RoleManager = "manager"
	// RoleAuditor only reads.
	RoleAuditor = "auditor"
)
