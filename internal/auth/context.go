package auth

import (
	"context"

	"github.com/finledger/finledger/internal/model"
)

type contextKey string

const userContextKey contextKey = "auth_user"

// ContextWithUser attaches the authenticated user to ctx.
// Handlers read it back once and pass the user explicitly to services.
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the authenticated user, or nil.
func UserFromContext(ctx context.Context) *model.User {
	user, _ := ctx.Value(userContextKey).(*model.User)
	return user
}
