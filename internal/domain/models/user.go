// internal/domain/models/user.go
package models

import "strings"

// Role is the access role assigned to a user by the backend.
type Role string

const (
	RoleUser       Role = "user" // normal end user
	RoleAdmin      Role = "admin"
	RoleStoreOwner Role = "store_owner"
)

// ParseRole normalizes a role string. Unknown values are returned as-is
// (lowercased) so callers can decide how to treat them.
func ParseRole(s string) Role {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if r == "normal" {
		return RoleUser
	}
	return r
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleStoreOwner:
		return true
	}
	return false
}

// User is a platform account as returned by the backend.
type User struct {
	ID      ID     `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    Role   `json:"role"`
	Address string `json:"address,omitempty"`
}
