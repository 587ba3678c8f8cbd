package content

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestMemoryCache_TTL(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache(time.Minute, 10)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	c.Set(ctx, "module:a", []byte(`{"slug":"a"}`))
	if v, ok := c.Get(ctx, "module:a"); !ok || string(v) != `{"slug":"a"}` {
		t.Fatalf("Get() = %q, %v", v, ok)
	}

	now = now.Add(time.Minute)
	if _, ok := c.Get(ctx, "module:a"); ok {
		t.Error("entry should expire after its TTL")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want expired entry removed", c.Len())
	}
}

func TestMemoryCache_Bounded(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache(time.Hour, 3)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	for i := range 5 {
		c.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"))
		now = now.Add(time.Second)
	}
	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}
	if _, ok := c.Get(ctx, "k0"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if _, ok := c.Get(ctx, "k4"); !ok {
		t.Error("newest entry should be present")
	}

	// Overwriting an existing key never evicts.
	c.Set(ctx, "k4", []byte("v2"))
	if c.Len() != 3 {
		t.Errorf("Len() after overwrite = %d, want 3", c.Len())
	}
}

func TestNopCache(t *testing.T) {
	var c Cache = NopCache{}
	c.Set(context.Background(), "k", []byte("v"))
	if _, ok := c.Get(context.Background(), "k"); ok {
		t.Error("NopCache should never hit")
	}
}

func TestRedisCache_UnreachableIsMiss(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	client := redis.NewClient(&redis.Options{
		Addr:        "localhost:59999",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	c := NewRedisCache(client, time.Minute)
	ctx := context.Background()
	c.Set(ctx, "module:a", []byte("v"))
	if _, ok := c.Get(ctx, "module:a"); ok {
		t.Error("Get() against an unreachable server should miss")
	}
}
