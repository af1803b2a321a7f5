package ocr

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Runs against a real server when REDIS_ADDR is set.
func TestRedisLimiter(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	key := "splitcheck:test:" + uuid.NewString()
	defer client.Del(ctx, key)

	limiter := NewRedisLimiter(client, key, 3, time.Minute)
	for i := range 3 {
		d, err := limiter.Allow(ctx)
		if err != nil {
			t.Fatalf("Allow failed: %v", err)
		}
		if !d.Allowed {
			t.Fatalf("Call %d rejected", i+1)
		}
	}

	d, err := limiter.Allow(ctx)
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if d.Allowed {
		t.Error("4th call allowed")
	}
	if d.ResetIn <= 0 || d.ResetIn > time.Minute {
		t.Errorf("ResetIn = %v, want within (0, 1m]", d.ResetIn)
	}
}
