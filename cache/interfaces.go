package cache

import (
	"context"
	"time"

	"github.com/huykn/mutation-cache/key"
	"github.com/huykn/mutation-cache/types"
)

// Logger defines the interface for logging in the mutation cache.
type Logger interface {
	// Debug logs a debug message.
	Debug(msg string, args ...any)

	// Info logs an info message.
	Info(msg string, args ...any)

	// Warn logs a warning message.
	Warn(msg string, args ...any)

	// Error logs an error message.
	Error(msg string, args ...any)
}

// Marshaller defines the interface for value serialization.
type Marshaller interface {
	// Marshal serializes a value to bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal deserializes a value from bytes.
	Unmarshal(data []byte, v any) error
}

// LocalCache is the eviction backend of a MemoryStore.
type LocalCache interface {
	// Get retrieves a value from the local cache.
	Get(key string) (any, bool)

	// Set stores a value in the local cache.
	Set(key string, value any, cost int64) bool

	// Delete removes a value from the local cache.
	Delete(key string)

	// Clear removes all values from the local cache.
	Clear()

	// Close closes the local cache.
	Close()

	// Metrics returns cache metrics.
	Metrics() LocalCacheMetrics
}

// LocalCacheMetrics represents local cache metrics.
type LocalCacheMetrics struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int64
}

// EvictFunc is called with the value of every entry the local cache drops on
// its own (capacity eviction or admission rejection). It may be called from a
// background goroutine.
type EvictFunc func(value any)

// LocalCacheFactory defines the interface for creating local cache implementations.
type LocalCacheFactory interface {
	// Create creates a new local cache instance reporting evictions to onEvict.
	Create(onEvict EvictFunc) (LocalCache, error)
}

// Entry is one cached read result.
type Entry struct {
	Key       key.Key
	Value     any
	State     types.State
	UpdatedAt time.Time

	// Version changes whenever the entry is written or invalidated. Versions
	// are never reused within a store, so a slot that was removed and written
	// again never repeats an earlier version.
	Version uint64
}

// Fresh reports whether the entry can be served without a refetch.
func (e Entry) Fresh() bool {
	return e.State == types.Fresh
}

// Store is a key-addressed cache of read results.
//
// Stores serialize writes to the same exact key and make the predicate scans
// safe against concurrent mutation. Predicates are called while the store
// holds internal locks and must not call back into the store.
type Store interface {
	// Get returns the entry stored at the exact key k.
	Get(ctx context.Context, k key.Key) (Entry, bool, error)

	// Set creates or overwrites the entry at the exact key k and marks it fresh.
	Set(ctx context.Context, k key.Key, value any) error

	// CompareAndSet writes value at k like Set, but only while the slot is
	// still at version: the Version of the entry last read, or 0 when the slot
	// was absent. It reports whether the write happened.
	CompareAndSet(ctx context.Context, k key.Key, value any, version uint64) (bool, error)

	// InvalidateWhere marks every entry whose key satisfies pred stale and
	// returns how many entries it marked.
	InvalidateWhere(ctx context.Context, pred func(key.Key) bool) (int, error)

	// RemoveWhere evicts every entry whose key satisfies pred and returns how
	// many entries it evicted.
	RemoveWhere(ctx context.Context, pred func(key.Key) bool) (int, error)

	// Keys returns a snapshot of every key currently held.
	Keys(ctx context.Context) ([]key.Key, error)

	// Close releases the store's resources.
	Close() error
}

// PatternScanner is implemented by stores that can select keys matching a set
// of patterns faster than a full Keys scan. The result must equal filtering
// Keys with key.MatchAny.
type PatternScanner interface {
	KeysMatching(ctx context.Context, patterns []key.Key) ([]key.Key, error)
}

// Stats represents read-path statistics.
type Stats struct {
	Hits      int64
	StaleHits int64
	Misses    int64
	Refetches int64
	Failures  int64

	// Superseded counts fetched values dropped because the entry changed
	// while they were being fetched.
	Superseded int64
}
