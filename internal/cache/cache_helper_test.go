package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, client
}

type cachedAttempt struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

func TestCacheHelper_SetGetDelete(t *testing.T) {
	_, client := newTestCache(t)
	helper := NewCacheHelper(client, FastCacheConfig.Prefix)
	ctx := context.Background()

	want := cachedAttempt{ID: "attempt-1", Score: 85}
	if err := helper.Set(ctx, "attempt:id:attempt-1", want, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var got cachedAttempt
	if err := helper.Get(ctx, "attempt:id:attempt-1", &got); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != want {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}

	exists, err := helper.Exists(ctx, "attempt:id:attempt-1")
	if err != nil || !exists {
		t.Errorf("Exists() = (%v, %v), want (true, nil)", exists, err)
	}

	if err := helper.Delete(ctx, "attempt:id:attempt-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := helper.Get(ctx, "attempt:id:attempt-1", &got); err != ErrCacheNotFound {
		t.Errorf("Get() after delete error = %v, want ErrCacheNotFound", err)
	}
}

func TestCacheHelper_NilClientDegradesGracefully(t *testing.T) {
	helper := NewCacheHelper(nil, "")
	ctx := context.Background()

	if err := helper.Set(ctx, "key", "value", time.Minute); err != nil {
		t.Errorf("Set() with nil client error = %v", err)
	}
	if err := helper.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete() with nil client error = %v", err)
	}

	var dest string
	if err := helper.Get(ctx, "key", &dest); err != ErrCacheNotAvailable {
		t.Errorf("Get() with nil client error = %v, want ErrCacheNotAvailable", err)
	}

	// CacheOrExecute falls through to the fetch
	fetched := false
	err := helper.CacheOrExecute(ctx, "key", &dest, time.Minute, func() (interface{}, error) {
		fetched = true
		return "from-db", nil
	})
	if err != nil {
		t.Fatalf("CacheOrExecute() error = %v", err)
	}
	if !fetched || dest != "from-db" {
		t.Errorf("CacheOrExecute() = (%q, fetched=%v), want fetch result", dest, fetched)
	}
}

func TestCacheOrExecute_HitSkipsFetch(t *testing.T) {
	_, client := newTestCache(t)
	helper := NewCacheHelper(client, QuizCacheConfig.Prefix)
	ctx := context.Background()

	want := cachedAttempt{ID: "attempt-1", Score: 60}
	if err := helper.Set(ctx, "attempt:id:attempt-1", want, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var got cachedAttempt
	err := helper.CacheOrExecute(ctx, "attempt:id:attempt-1", &got, time.Minute, func() (interface{}, error) {
		t.Error("fetch ran on a cache hit")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("CacheOrExecute() error = %v", err)
	}
	if got != want {
		t.Errorf("CacheOrExecute() = %+v, want cached value", got)
	}
}

func TestInvalidatePattern(t *testing.T) {
	_, client := newTestCache(t)
	helper := NewCacheHelper(client, QuizCacheConfig.Prefix)
	ctx := context.Background()

	keys := []string{"quiz:id:q1", "quiz:id:q1:full", "quiz:id:q2"}
	for _, key := range keys {
		if err := helper.Set(ctx, key, "x", time.Minute); err != nil {
			t.Fatalf("Set(%s) error = %v", key, err)
		}
	}

	if err := helper.InvalidatePattern(ctx, "quiz:id:q1*"); err != nil {
		t.Fatalf("InvalidatePattern() error = %v", err)
	}

	var dest string
	if err := helper.Get(ctx, "quiz:id:q1", &dest); err != ErrCacheNotFound {
		t.Errorf("q1 survived invalidation: %v", err)
	}
	if err := helper.Get(ctx, "quiz:id:q1:full", &dest); err != ErrCacheNotFound {
		t.Errorf("q1:full survived invalidation: %v", err)
	}
	if err := helper.Get(ctx, "quiz:id:q2", &dest); err != nil {
		t.Errorf("q2 was invalidated by the q1 pattern: %v", err)
	}
}

func TestCacheManager_InvalidateAttempt(t *testing.T) {
	_, client := newTestCache(t)
	manager := NewCacheManager(client)
	ctx := context.Background()

	if err := manager.Fast.Set(ctx, "attempt:id:attempt-1", "state", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if err := manager.InvalidateAttempt(ctx, "attempt-1"); err != nil {
		t.Fatalf("InvalidateAttempt() error = %v", err)
	}

	var dest string
	if err := manager.Fast.Get(ctx, "attempt:id:attempt-1", &dest); err != ErrCacheNotFound {
		t.Errorf("attempt entry survived invalidation: %v", err)
	}

	if err := manager.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}
