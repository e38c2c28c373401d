package cache

import (
	"sync/atomic"
	"testing"
)

func localBackends(t *testing.T, onEvict EvictFunc) map[string]LocalCache {
	t.Helper()

	lruCache, err := NewLRUCache(100, onEvict)
	if err != nil {
		t.Fatalf("Failed to create LRU cache: %v", err)
	}
	lfuCache, err := NewLFUCache(DefaultLocalCacheConfig(), onEvict)
	if err != nil {
		t.Fatalf("Failed to create LFU cache: %v", err)
	}

	return map[string]LocalCache{
		PolicyLRU: lruCache,
		PolicyLFU: lfuCache,
	}
}

func TestLocalCacheSetGet(t *testing.T) {
	for name, c := range localBackends(t, nil) {
		t.Run(name, func(t *testing.T) {
			defer c.Close()

			if !c.Set("key1", "value1", 1) {
				t.Fatal("Set should succeed")
			}
			value, found := c.Get("key1")
			if !found {
				t.Fatal("Value should be found right after Set")
			}
			if value != "value1" {
				t.Fatalf("Expected 'value1', got %v", value)
			}

			c.Set("key1", "value2", 1)
			value, _ = c.Get("key1")
			if value != "value2" {
				t.Fatalf("Expected 'value2' after overwrite, got %v", value)
			}
		})
	}
}

func TestLocalCacheDeleteAndClear(t *testing.T) {
	for name, c := range localBackends(t, nil) {
		t.Run(name, func(t *testing.T) {
			defer c.Close()

			c.Set("key1", "value1", 1)
			c.Set("key2", "value2", 1)
			c.Delete("key1")
			c.Delete("nonexistent")

			if _, found := c.Get("key1"); found {
				t.Fatal("Value should not be found after deletion")
			}
			if _, found := c.Get("key2"); !found {
				t.Fatal("Other values should survive a delete")
			}

			c.Clear()
			if _, found := c.Get("key2"); found {
				t.Fatal("Cache should be empty after clear")
			}
		})
	}
}

func TestLocalCacheMetrics(t *testing.T) {
	for name, c := range localBackends(t, nil) {
		t.Run(name, func(t *testing.T) {
			defer c.Close()

			c.Set("key1", "value1", 1)
			c.Get("key1") // Hit
			c.Get("key1") // Hit
			c.Get("key2") // Miss

			metrics := c.Metrics()
			if metrics.Hits != 2 {
				t.Fatalf("Expected 2 hits, got %d", metrics.Hits)
			}
			if metrics.Misses != 1 {
				t.Fatalf("Expected 1 miss, got %d", metrics.Misses)
			}
		})
	}
}

func TestLRUCacheEvictionCallback(t *testing.T) {
	var evicted []any
	c, err := NewLRUCache(2, func(value any) {
		evicted = append(evicted, value)
	})
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer c.Close()

	c.Set("a", "A", 1)
	c.Set("b", "B", 1)
	c.Get("a") // a becomes most recently used
	c.Set("c", "C", 1)

	if len(evicted) != 1 || evicted[0] != "B" {
		t.Fatalf("Expected B to be evicted, got %v", evicted)
	}
	if c.Metrics().Evictions != 1 {
		t.Fatalf("Expected 1 eviction, got %d", c.Metrics().Evictions)
	}

	// Explicit removals are not evictions.
	c.Delete("a")
	c.Clear()
	if len(evicted) != 1 {
		t.Fatalf("Delete and Clear should not report evictions, got %v", evicted)
	}
}

func TestLRUCacheInvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		if _, err := NewLRUCache(size, nil); err == nil {
			t.Fatalf("Expected error when creating cache with size %d", size)
		}
	}
}

func TestLocalCacheFactories(t *testing.T) {
	var calls int32
	onEvict := func(any) { atomic.AddInt32(&calls, 1) }

	lruConfig := DefaultLocalCacheConfig()
	lruConfig.Policy = PolicyLRU

	for _, cfg := range []LocalCacheConfig{DefaultLocalCacheConfig(), lruConfig} {
		factory, err := NewLocalCacheFactory(cfg)
		if err != nil {
			t.Fatalf("NewLocalCacheFactory(%s) failed: %v", cfg.Policy, err)
		}
		c, err := factory.Create(onEvict)
		if err != nil {
			t.Fatalf("Failed to create %s cache from factory: %v", cfg.Policy, err)
		}
		c.Set("test", "value", 1)
		if v, found := c.Get("test"); !found || v != "value" {
			t.Fatalf("%s cache from factory does not work", cfg.Policy)
		}
		c.Close()
	}

	bad := DefaultLocalCacheConfig()
	bad.Policy = "fifo"
	if _, err := NewLocalCacheFactory(bad); err != ErrInvalidConfig {
		t.Fatalf("Expected ErrInvalidConfig for unknown policy, got %v", err)
	}
}
