package auth

import (
	"fmt"
	"strings"
	"time"
)

// Role is an authorisation tier carried in the token and the user record.
type Role string

const (
	// RoleUser is a regular account with access to the dashboard area.
	RoleUser Role = "USER"

	// RoleAdmin can reach the admin area and revoke any session.
	RoleAdmin Role = "ADMIN"
)

// ValidRoles lists every role a token or user record may carry.
var ValidRoles = []Role{RoleUser, RoleAdmin}

// Valid reports whether r is one of ValidRoles.
func (r Role) Valid() bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// ParseRole converts a stored or configured role name into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// User is the minimal account record the auth core needs.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	PasswordHash string     `json:"-"` // never serialised
	Role         Role       `json:"role"`
	IsActive     bool       `json:"isActive"`
	LastLoginAt  *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// NormalizeEmail lowercases and trims an address. Every lookup and insert
// goes through it so "Alice@Example.com" and "alice@example.com" are one account.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
