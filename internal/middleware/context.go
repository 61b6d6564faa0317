package middleware

import (
	"context"
)

type contextKey string

const AdminContextKey contextKey = "admin"

// GetAdmin returns the authenticated admin username, or "" when the request
// carries no valid admin session.
func GetAdmin(ctx context.Context) string {
	if username, ok := ctx.Value(AdminContextKey).(string); ok {
		return username
	}
	return ""
}

// WithAdmin stores the admin username in ctx.
func WithAdmin(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, AdminContextKey, username)
}
