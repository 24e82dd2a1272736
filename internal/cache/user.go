package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/finledger/finledger/internal/model"
)

const (
	// userCachePrefix is the Redis key prefix for resolved users.
	userCachePrefix = "auth:user:"
	// userCacheTTL is the time-to-live for cached users.
	userCacheTTL = 5 * time.Minute
)

// cachedUser is the Redis representation of a user. The credential hash is never cached.
type cachedUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// GetUser returns the cached user for cacheKey.
// A miss or a corrupted entry returns (nil, nil).
func (c *Cache) GetUser(ctx context.Context, cacheKey string) (*model.User, error) {
	data, err := c.client.Get(ctx, userCachePrefix+cacheKey).Bytes()
	if err != nil {
		return nil, nil //nolint:nilerr
	}

	user, ok := decodeUser(data)
	if !ok {
		return nil, nil
	}
	return user, nil
}

// SetUser caches user under cacheKey.
func (c *Cache) SetUser(ctx context.Context, cacheKey string, user *model.User) error {
	data, err := encodeUser(user)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, userCachePrefix+cacheKey, data, userCacheTTL).Err()
}

func encodeUser(user *model.User) ([]byte, error) {
	data, err := json.Marshal(cachedUser{
		ID:        user.ID,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal user: %w", err)
	}
	return data, nil
}

func decodeUser(data []byte) (*model.User, bool) {
	var cached cachedUser
	if err := json.Unmarshal(data, &cached); err != nil || cached.ID == "" {
		return nil, false
	}
	return &model.User{
		ID:        cached.ID,
		Name:      cached.Name,
		CreatedAt: cached.CreatedAt,
	}, true
}
