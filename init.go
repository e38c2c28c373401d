package mutationcache

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/huykn/mutation-cache/cache"
	"github.com/huykn/mutation-cache/storage"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// EnvPrefix prefixes every environment variable read by ConfigFromEnv.
const EnvPrefix = "MUTATIONCACHE_"

// Config configures an Engine.
type Config struct {
	// Registry maps mutation kinds to the cache effects they have.
	// It is copied when the engine is created.
	Registry Registry

	// StoreBackend selects where cached reads live: "memory" or "redis".
	StoreBackend string `env:"STORE_BACKEND"`

	// LocalCacheConfig configures the eviction backend of the memory store.
	LocalCacheConfig LocalCacheConfig `envPrefix:"LOCAL_CACHE_"`

	// LocalCacheFactory is the factory for creating local cache instances.
	// If nil, one is built from LocalCacheConfig.
	LocalCacheFactory LocalCacheFactory

	// RedisAddr is the Redis server address (e.g., "localhost:6379").
	RedisAddr string `env:"REDIS_ADDR"`

	// RedisPassword is the optional Redis password.
	RedisPassword string `env:"REDIS_PASSWORD"`

	// RedisDB is the Redis database number.
	RedisDB int `env:"REDIS_DB"`

	// RedisKeyPrefix namespaces entry hashes in Redis.
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX"`

	// SerializationFormat specifies how values are serialized in Redis. Only
	// "json" is supported.
	SerializationFormat string `env:"SERIALIZATION_FORMAT"`

	// Marshaller overrides SerializationFormat when set.
	Marshaller Marshaller

	// Logger is the logger for debug logging.
	// If nil, defaults to no-op logger.
	Logger Logger

	// DebugMode enables debug logging.
	DebugMode bool `env:"DEBUG"`

	// ContextTimeout bounds background refetches.
	ContextTimeout time.Duration `env:"CONTEXT_TIMEOUT"`

	// StaleWhileRevalidate serves stale entries while they are refetched.
	StaleWhileRevalidate bool `env:"STALE_WHILE_REVALIDATE"`

	// EnableMetrics enables Prometheus metrics for synchronization.
	EnableMetrics bool `env:"ENABLE_METRICS"`

	// MetricsRegisterer receives the metrics. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegisterer prometheus.Registerer

	// MetricsNamespace prefixes metric names.
	MetricsNamespace string `env:"METRICS_NAMESPACE"`

	// OnError is called when synchronization or a background refetch fails.
	// Such failures never fail the mutation that caused them.
	OnError func(error)
}

// DefaultConfig returns default engine configuration.
func DefaultConfig() Config {
	return Config{
		StoreBackend:         BackendMemory,
		LocalCacheConfig:     DefaultLocalCacheConfig(),
		RedisAddr:            "localhost:6379",
		RedisDB:              0,
		RedisKeyPrefix:       storage.DefaultKeyPrefix,
		SerializationFormat:  "json",
		ContextTimeout:       5 * time.Second,
		StaleWhileRevalidate: true,
		EnableMetrics:        true,
		MetricsNamespace:     "mutationcache",
		LocalCacheFactory:    nil, // Built from LocalCacheConfig in New()
		Marshaller:           nil, // Will default to SerializationFormat in New()
		Logger:               nil, // Will default to no-op in New()
		DebugMode:            false,
	}
}

// ConfigFromEnv returns DefaultConfig overlaid with MUTATIONCACHE_*
// environment variables, e.g. MUTATIONCACHE_STORE_BACKEND or
// MUTATIONCACHE_LOCAL_CACHE_POLICY.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory:
		if c.LocalCacheFactory == nil {
			if err := c.LocalCacheConfig.Validate(); err != nil {
				return fmt.Errorf("%w: local cache: policy %q", ErrInvalidConfig, c.LocalCacheConfig.Policy)
			}
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis address is required", ErrInvalidConfig)
		}
		if c.Marshaller == nil {
			if _, err := storage.GetSerializer(c.SerializationFormat); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
			}
		}
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, c.StoreBackend)
	}
	if c.ContextTimeout < 0 {
		return fmt.Errorf("%w: negative context timeout", ErrInvalidConfig)
	}
	return nil
}

// New creates a new engine.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = cache.NewNoOpLogger()
	}

	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}

	e, err := newEngine(cfg, store)
	if err != nil {
		store.Close()
		return nil, err
	}
	return e, nil
}

func newStore(cfg Config) (cache.Store, error) {
	if cfg.StoreBackend == BackendRedis {
		serializer := storage.Serializer(cfg.Marshaller)
		if serializer == nil {
			var err error
			if serializer, err = storage.GetSerializer(cfg.SerializationFormat); err != nil {
				return nil, err
			}
		}
		return storage.NewRedisStore(storage.RedisOptions{
			Addr:       cfg.RedisAddr,
			Password:   cfg.RedisPassword,
			DB:         cfg.RedisDB,
			KeyPrefix:  cfg.RedisKeyPrefix,
			Serializer: serializer,
		})
	}

	factory := cfg.LocalCacheFactory
	if factory == nil {
		var err error
		if factory, err = cache.NewLocalCacheFactory(cfg.LocalCacheConfig); err != nil {
			return nil, err
		}
	}
	return cache.NewMemoryStore(factory)
}
