package domain

import "time"

// Role enumerates campus platform roles.
type Role string

const (
	RoleStudent    Role = "student"
	RoleCommittee  Role = "committee"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// IsAdmin reports whether the role carries administrative rights.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// User is the subset of an account the workflows need.
type User struct {
	ID        string
	Name      string
	Email     string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}
