// Package auth resolves request tokens to users and hashes user credentials.
package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/finledger/finledger/internal/model"
)

// ErrUnauthorized is returned for every authentication failure.
// Missing users and store failures are deliberately indistinguishable.
var ErrUnauthorized = errors.New("unauthorized")

// UserLookup finds users by exact ID.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
}

// UserCache is an optional read-through cache in front of UserLookup.
// Get returns (nil, nil) on a miss.
type UserCache interface {
	GetUser(ctx context.Context, key string) (*model.User, error)
	SetUser(ctx context.Context, key string, user *model.User) error
}

// Gate authenticates opaque user tokens.
type Gate struct {
	users  UserLookup
	cache  UserCache
	logger *slog.Logger
}

// NewGate creates a Gate. cache may be nil.
func NewGate(users UserLookup, cache UserCache, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		users:  users,
		cache:  cache,
		logger: logger,
	}
}

// Authenticate resolves token to the user it identifies.
func (g *Gate) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}

	cacheKey := QuickHash(token)
	if g.cache != nil {
		if user, err := g.cache.GetUser(ctx, cacheKey); err == nil && user != nil {
			return user, nil
		}
	}

	user, err := g.users.GetUser(ctx, token)
	if err != nil {
		// Keep the cause in the logs only.
		g.logger.DebugContext(ctx, "user lookup failed", slog.String("error", err.Error()))
		return nil, ErrUnauthorized
	}

	if g.cache != nil {
		if err := g.cache.SetUser(ctx, cacheKey, user); err != nil {
			g.logger.WarnContext(ctx, "failed to cache user", slog.String("error", err.Error()))
		}
	}

	return user, nil
}
