package models

import "fmt"

// Role is the closed set of access levels a user can hold.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleUser     Role = "user"
	RoleReadOnly Role = "read-only"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RoleUser, RoleReadOnly}

// ParseRole converts s to a Role, rejecting anything outside the enum.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("invalid role %q: must be admin, user, or read-only", s)
	}
	return r, nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleReadOnly:
		return true
	}
	return false
}

// CanWrite reports whether the role may create, update or delete data.
func (r Role) CanWrite() bool {
	switch r {
	case RoleAdmin, RoleUser:
		return true
	case RoleReadOnly:
		return false
	}
	return false
}

// IsAdmin reports whether the role bypasses ownership checks.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

func (r Role) String() string { return string(r) }
