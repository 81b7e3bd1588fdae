package service

import (
	"context"

	"github.com/spec-kit/campus-support/internal/domain"
	"github.com/spec-kit/campus-support/internal/repository"
)

// RoleResolver looks up the role of a user for authorization checks.
type RoleResolver interface {
	GetUserRole(ctx context.Context, userID string) (domain.Role, error)
}

// UserRoleResolver resolves roles from the users table.
type UserRoleResolver struct {
	users repository.UserRepository
}

// NewUserRoleResolver builds a resolver over users.
func NewUserRoleResolver(users repository.UserRepository) *UserRoleResolver {
	return &UserRoleResolver{users: users}
}

func (r *UserRoleResolver) GetUserRole(ctx context.Context, userID string) (domain.Role, error) {
	return r.users.GetRole(ctx, userID)
}

// isStaffRole reports whether role may act on tickets it did not create.
func isStaffRole(role domain.Role) bool {
	return role.IsAdmin() || role == domain.RoleCommittee
}
