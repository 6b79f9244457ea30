package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/status-api/internal/domain"
)

// UserContext holds authenticated user information
type UserContext struct {
	UserID   uuid.UUID
	Username string
	Email    string
	Role     domain.Role
}

type contextKey string

const userContextKey contextKey = "userContext"

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok && user != nil
}

// MustFromContext extracts user context or panics
func MustFromContext(ctx context.Context) *UserContext {
	user, ok := FromContext(ctx)
	if !ok {
		panic("user context not found in context")
	}
	return user
}

// HasRole checks if user holds the given role
func (u *UserContext) HasRole(role domain.Role) bool {
	return u.Role == role
}

// HasAnyRole checks if user holds any of the given roles
func (u *UserContext) HasAnyRole(roles ...domain.Role) bool {
	for _, role := range roles {
		if u.Role == role {
			return true
		}
	}
	return false
}

// IsManager reports whether the user sees and manages every project
func (u *UserContext) IsManager() bool {
	return u.HasAnyRole(domain.RoleAdministrator, domain.RoleProjectManager)
}

// Can evaluates the access policy for this user
func (u *UserContext) Can(action Action, rel Relationship) bool {
	return Permission(u.Role, action, rel) == Allow
}
