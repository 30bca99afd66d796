package domain

import "time"

// UserRole enumerates account roles. HANDLER and ADMIN accounts are
// eligible ticket assignees.
type UserRole string

const (
	RoleUser    UserRole = "USER"
	RoleHandler UserRole = "HANDLER"
	RoleAdmin   UserRole = "ADMIN"
)

// AssignableRoles returns the roles eligible for ticket assignment.
func AssignableRoles() []UserRole {
	return []UserRole{RoleHandler, RoleAdmin}
}

// ValidRole reports whether r is a known role.
func ValidRole(r UserRole) bool {
	switch r {
	case RoleUser, RoleHandler, RoleAdmin:
		return true
	}
	return false
}

// User models an account. Skills drive the assignment scorer; the
// open-ticket count is always derived by query, never stored here.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         UserRole
	Skills       []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
