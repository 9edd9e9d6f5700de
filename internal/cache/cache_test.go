package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestCache(t *testing.T) *Cache[string, int] {
	t.Helper()
	c := New[string, int](time.Minute, func(k string) string { return k })
	t.Cleanup(c.Close)
	return c
}

func TestCache_SetGet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Set(ctx, "k", 42, time.Minute)
	v, ok := c.Get(ctx, "k")
	if !ok || v != 42 {
		t.Fatalf("got %d, %v; want 42, true", v, ok)
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "k", 1, 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("expected expired entry to miss")
	}
}

func TestCache_GetOrLoad_SingleFlight(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	var loads atomic.Int32
	load := func(context.Context) (int, error) {
		loads.Add(1)
		time.Sleep(20 * time.Millisecond)
		return 7, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrLoad(ctx, "k", time.Minute, load)
			if err != nil || v != 7 {
				t.Errorf("GetOrLoad = %d, %v; want 7, nil", v, err)
			}
		}()
	}
	wg.Wait()

	if n := loads.Load(); n != 1 {
		t.Fatalf("load invoked %d times; want 1", n)
	}
}

func TestCache_GetOrLoad_ErrorNotCached(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	boom := errors.New("boom")
	if _, err := c.GetOrLoad(ctx, "k", time.Minute, func(context.Context) (int, error) {
		return 0, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("got %v; want boom", err)
	}

	// A failed load must not poison the key.
	v, err := c.GetOrLoad(ctx, "k", time.Minute, func(context.Context) (int, error) {
		return 9, nil
	})
	if err != nil || v != 9 {
		t.Fatalf("got %d, %v; want 9, nil", v, err)
	}
}
