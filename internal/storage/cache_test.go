package storage

import (
	"fmt"
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	cache := NewLRUCache(10, time.Minute)

	cache.Set("provider:flux-1.0:draw", "provider-a")

	value, found := cache.Get("provider:flux-1.0:draw")
	if !found {
		t.Fatal("Expected to find cached value")
	}
	if value != "provider-a" {
		t.Errorf("Got %v, want provider-a", value)
	}

	if _, found := cache.Get("provider:missing:draw"); found {
		t.Error("Expected miss for unknown key")
	}
}

func TestCacheUpdateExisting(t *testing.T) {
	cache := NewLRUCache(10, time.Minute)

	cache.Set("rules:provider-a", 1)
	cache.Set("rules:provider-a", 2)

	value, found := cache.Get("rules:provider-a")
	if !found || value != 2 {
		t.Errorf("Got %v (found=%v), want 2", value, found)
	}
	if cache.Len() != 1 {
		t.Errorf("Expected 1 item, got %d", cache.Len())
	}
}

func TestCacheEviction(t *testing.T) {
	cache := NewLRUCache(3, time.Minute)

	for i := 0; i < 3; i++ {
		cache.Set(fmt.Sprintf("key-%d", i), i)
	}

	// Touch key-0 so key-1 becomes the oldest.
	cache.Get("key-0")
	cache.Set("key-3", 3)

	if cache.Len() != 3 {
		t.Errorf("Expected 3 items, got %d", cache.Len())
	}
	if _, found := cache.Get("key-1"); found {
		t.Error("Expected key-1 to be evicted")
	}
	if _, found := cache.Get("key-0"); !found {
		t.Error("Expected recently used key-0 to survive eviction")
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	cache := NewLRUCache(10, 10*time.Millisecond)

	cache.Set("short-lived", "value")
	time.Sleep(25 * time.Millisecond)

	if _, found := cache.Get("short-lived"); found {
		t.Error("Expected expired entry to be a miss")
	}
}

func TestCacheCleanupExpired(t *testing.T) {
	cache := NewLRUCache(10, 10*time.Millisecond)

	cache.Set("a", 1)
	cache.Set("b", 2)
	time.Sleep(25 * time.Millisecond)

	removed := cache.CleanupExpired()
	if removed != 2 {
		t.Errorf("Expected 2 removed, got %d", removed)
	}
	if cache.Len() != 0 {
		t.Errorf("Expected empty cache, got %d items", cache.Len())
	}
}

func TestCacheDeleteAndClear(t *testing.T) {
	cache := NewLRUCache(10, time.Minute)

	cache.Set("a", 1)
	cache.Set("b", 2)

	cache.Delete("a")
	if _, found := cache.Get("a"); found {
		t.Error("Expected deleted key to be a miss")
	}
	if cache.Len() != 1 {
		t.Errorf("Expected 1 item after delete, got %d", cache.Len())
	}

	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("Expected empty cache after clear, got %d items", cache.Len())
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	cache := NewLRUCache(100, time.Minute)
	done := make(chan struct{})

	for w := 0; w < 4; w++ {
		go func(w int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("key-%d", i%50)
				cache.Set(key, w)
				cache.Get(key)
			}
		}(w)
	}

	for w := 0; w < 4; w++ {
		<-done
	}

	if cache.Len() > 50 {
		t.Errorf("Expected at most 50 items, got %d", cache.Len())
	}
}
