package cache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUCacheFactory creates LRU cache instances.
type LRUCacheFactory struct {
	maxSize int
}

// NewLRUCacheFactory creates a new LRU cache factory.
func NewLRUCacheFactory(maxSize int) LocalCacheFactory {
	return &LRUCacheFactory{maxSize: maxSize}
}

// Create creates a new LRU cache instance.
func (lcf *LRUCacheFactory) Create(onEvict EvictFunc) (LocalCache, error) {
	return NewLRUCache(lcf.maxSize, onEvict)
}

// LRUCache is a local LRU cache implementation using golang-lru.
type LRUCache struct {
	cache     *lru.Cache[string, any]
	hits      int64
	misses    int64
	evictions int64
	maxSize   int64
	// removing is set while Delete or Clear run so that explicit removals are
	// not reported as evictions.
	removing int32
}

// NewLRUCache creates a new LRU-based local cache. onEvict may be nil.
func NewLRUCache(maxSize int, onEvict EvictFunc) (*LRUCache, error) {
	lc := &LRUCache{maxSize: int64(maxSize)}

	cache, err := lru.NewWithEvict[string, any](maxSize, func(_ string, value any) {
		if atomic.LoadInt32(&lc.removing) != 0 {
			return
		}
		atomic.AddInt64(&lc.evictions, 1)
		if onEvict != nil {
			onEvict(value)
		}
	})
	if err != nil {
		return nil, err
	}
	lc.cache = cache

	return lc, nil
}

// Get retrieves a value from the local cache.
func (lc *LRUCache) Get(key string) (any, bool) {
	value, found := lc.cache.Get(key)
	if found {
		atomic.AddInt64(&lc.hits, 1)
	} else {
		atomic.AddInt64(&lc.misses, 1)
	}
	return value, found
}

// Set stores a value in the local cache.
func (lc *LRUCache) Set(key string, value any, cost int64) bool {
	lc.cache.Add(key, value)
	return true
}

// Delete removes a value from the local cache.
func (lc *LRUCache) Delete(key string) {
	atomic.StoreInt32(&lc.removing, 1)
	defer atomic.StoreInt32(&lc.removing, 0)
	lc.cache.Remove(key)
}

// Clear removes all values from the local cache.
func (lc *LRUCache) Clear() {
	atomic.StoreInt32(&lc.removing, 1)
	defer atomic.StoreInt32(&lc.removing, 0)
	lc.cache.Purge()
}

// Close closes the local cache.
func (lc *LRUCache) Close() {
	lc.Clear()
}

// Len returns the number of cached items.
func (lc *LRUCache) Len() int {
	return lc.cache.Len()
}

// Metrics returns cache metrics.
func (lc *LRUCache) Metrics() LocalCacheMetrics {
	return LocalCacheMetrics{
		Hits:      atomic.LoadInt64(&lc.hits),
		Misses:    atomic.LoadInt64(&lc.misses),
		Evictions: atomic.LoadInt64(&lc.evictions),
		Size:      int64(lc.cache.Len()),
	}
}
