package auth

import (
	"slices"
	"strings"
)

// Area prefixes used by DefaultPolicy and the admin-area redirect.
const (
	AdminAreaPrefix     = "/admin"
	DashboardAreaPrefix = "/dashboard"
)

// AccessRule restricts every path starting with Prefix to Roles.
type AccessRule struct {
	Prefix string
	Roles  []Role
}

// Policy is an ordered list of rules; the first matching prefix wins.
// It is immutable after construction and safe for concurrent use.
type Policy struct {
	rules []AccessRule
}

// NewPolicy builds a Policy from rules, evaluated in the given order.
func NewPolicy(rules ...AccessRule) *Policy {
	copied := make([]AccessRule, len(rules))
	for i, r := range rules {
		copied[i] = AccessRule{Prefix: r.Prefix, Roles: slices.Clone(r.Roles)}
	}
	return &Policy{rules: copied}
}

// DefaultPolicy restricts /admin to ADMIN and /dashboard to USER and ADMIN.
func DefaultPolicy() *Policy {
	return NewPolicy(
		AccessRule{Prefix: AdminAreaPrefix, Roles: []Role{RoleAdmin}},
		AccessRule{Prefix: DashboardAreaPrefix, Roles: []Role{RoleUser, RoleAdmin}},
	)
}

// RequiredRoles returns the roles of the first rule whose prefix matches
// path. The match is a plain string prefix test, so "/administrator"
// falls under "/admin". ok is false when no rule applies.
func (p *Policy) RequiredRoles(path string) (roles []Role, ok bool) {
	for _, r := range p.rules {
		if strings.HasPrefix(path, r.Prefix) {
			return slices.Clone(r.Roles), true
		}
	}
	return nil, false
}

// IsAuthorized reports whether role is in required.
func IsAuthorized(role Role, required []Role) bool {
	return slices.Contains(required, role)
}
