//go:build integration

package cache

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/finledger/finledger/internal/model"
	"github.com/finledger/finledger/internal/testutil"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()

	redisURL := testutil.RequireEnv(t, "REDIS_URL")
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("parse redis url: %v", err)
	}
	client := redis.NewClient(opt)
	if err := testutil.FlushRedis(context.Background(), client); err != nil {
		t.Fatalf("flush redis: %v", err)
	}

	c := NewWithClient(client)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCache_UserRoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	key := testutil.UniqueID("cache-key")

	if got, err := c.GetUser(ctx, key); err != nil || got != nil {
		t.Fatalf("expected miss, got %+v, %v", got, err)
	}

	if err := c.SetUser(ctx, key, &model.User{ID: "u-1", Name: "Alice"}); err != nil {
		t.Fatalf("SetUser: %v", err)
	}

	got, err := c.GetUser(ctx, key)
	if err != nil || got == nil {
		t.Fatalf("expected hit, got %+v, %v", got, err)
	}
	if got.ID != "u-1" {
		t.Errorf("unexpected user %+v", got)
	}
}

func TestCache_UserRateLimit(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	userID := testutil.UniqueID("rl-user")

	for i := 0; i < 3; i++ {
		res, err := c.CheckUserRateLimit(ctx, userID, 60, 3)
		if err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
	}

	res, err := c.CheckUserRateLimit(ctx, userID, 60, 3)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.Allowed {
		t.Error("request beyond burst should be rejected")
	}
	if res.RetryAfter <= 0 {
		t.Errorf("expected positive RetryAfter, got %v", res.RetryAfter)
	}
}
