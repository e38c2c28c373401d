package cache

import (
	"time"
)

// Eviction policies for the local cache backing a MemoryStore.
const (
	PolicyLFU = "lfu"
	PolicyLRU = "lru"
)

// LocalCacheConfig configures the local cache.
type LocalCacheConfig struct {
	// Policy selects the eviction backend: "lfu" (Ristretto) or "lru" (golang-lru).
	Policy string `env:"POLICY"`

	// NumCounters is the number of counters for the cache (Ristretto only).
	// Recommended: 10 * MaxItems
	NumCounters int64 `env:"NUM_COUNTERS"`

	// MaxCost is the maximum cost of items in the cache (Ristretto only).
	// Every entry costs 1, so this bounds the number of entries.
	MaxCost int64 `env:"MAX_COST"`

	// BufferItems is the number of items to buffer before eviction (Ristretto only).
	// Recommended: 64
	BufferItems int64 `env:"BUFFER_ITEMS"`

	// IgnoreInternalCost ignores the internal cost of items (Ristretto only).
	IgnoreInternalCost bool `env:"IGNORE_INTERNAL_COST"`

	// MaxSize is the maximum number of items in the cache (LRU only).
	MaxSize int `env:"MAX_SIZE"`
}

// ClientOptions configures the read path of a Client.
type ClientOptions struct {
	// StaleWhileRevalidate serves stale entries immediately and refetches them
	// in the background. When false, stale entries are refetched before returning.
	StaleWhileRevalidate bool

	// RefetchTimeout bounds background refetches.
	RefetchTimeout time.Duration

	// Logger is the logger for debug logging.
	// If nil, defaults to no-op logger.
	Logger Logger

	// DebugMode enables debug logging.
	DebugMode bool

	// OnError is called when a background refetch or cache write fails.
	OnError func(error)
}

// DefaultClientOptions returns default read path options.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		StaleWhileRevalidate: true,
		RefetchTimeout:       5 * time.Second,
	}
}

// DefaultLocalCacheConfig returns default local cache configuration.
func DefaultLocalCacheConfig() LocalCacheConfig {
	return LocalCacheConfig{
		Policy:             PolicyLFU,
		NumCounters:        1e6,
		MaxCost:            1e5,
		BufferItems:        64,
		IgnoreInternalCost: true,
		MaxSize:            10000,
	}
}

// Validate validates the local cache configuration.
func (c *LocalCacheConfig) Validate() error {
	switch c.Policy {
	case PolicyLFU:
		if c.NumCounters <= 0 || c.MaxCost <= 0 || c.BufferItems <= 0 {
			return ErrInvalidConfig
		}
	case PolicyLRU:
		if c.MaxSize <= 0 {
			return ErrInvalidConfig
		}
	default:
		return ErrInvalidConfig
	}
	return nil
}

// ErrInvalidConfig is returned when options are invalid.
var ErrInvalidConfig = NewError("invalid cache configuration")

// ErrStoreClosed is returned when operations are performed on a closed store.
var ErrStoreClosed = NewError("store is closed")

// NewError creates a new error with the given message.
func NewError(msg string) error {
	return &cacheError{msg: msg}
}

type cacheError struct {
	msg string
}

func (e *cacheError) Error() string {
	return e.msg
}
