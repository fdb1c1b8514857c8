package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// newTestRedis connects to REDIS_ADDR or skips the test.
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable at %s: %v", addr, err)
	}
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestRedisStore_Hit(t *testing.T) {
	rdb := newTestRedis(t)
	s := NewRedisStore(rdb, WithPrefix("ratelimit-test:"+uuid.NewString()))
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		res, err := s.Hit(ctx, "10.0.0.1", time.Minute)
		if err != nil {
			t.Fatalf("Hit() error = %v", err)
		}
		if res.Count != i {
			t.Fatalf("hit %d: Count = %d", i, res.Count)
		}
		if res.ResetIn <= 0 || res.ResetIn > time.Minute {
			t.Errorf("hit %d: ResetIn = %v", i, res.ResetIn)
		}
	}
}

func TestRedisStore_WindowExpires(t *testing.T) {
	rdb := newTestRedis(t)
	s := NewRedisStore(rdb, WithPrefix("ratelimit-test:"+uuid.NewString()))
	ctx := context.Background()

	if _, err := s.Hit(ctx, "k", 50*time.Millisecond); err != nil {
		t.Fatalf("Hit() error = %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	res, err := s.Hit(ctx, "k", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Hit() error = %v", err)
	}
	if res.Count != 1 {
		t.Errorf("Count = %d after expiry, want 1", res.Count)
	}
}

func TestNewRedisStoreFromURL_Invalid(t *testing.T) {
	if _, err := NewRedisStoreFromURL(context.Background(), "not-a-redis-url"); err == nil {
		t.Fatal("expected error for invalid URL")
	}
}
