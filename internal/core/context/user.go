// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// RoleSuperAdmin bypasses scope filtering everywhere.
const RoleSuperAdmin = "SUPER_ADMIN"

// UserContext contains the authenticated session as supplied by the auth provider.
type UserContext struct {
	UserID            string
	Role              string
	CredentialGroupID string
	OrganizationName  string
	SessionID         string
}

// IsSuperAdmin reports whether the session carries the super-admin role.
func (u *UserContext) IsSuperAdmin() bool {
	return u != nil && u.Role == RoleSuperAdmin
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// HasRole checks if user has specific role.
func HasRole(ctx context.Context, role string) bool {
	u := GetUser(ctx)
	return u != nil && u.Role == role
}
