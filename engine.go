package mutationcache

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/huykn/mutation-cache/cache"
	"github.com/huykn/mutation-cache/effect"
	"github.com/huykn/mutation-cache/key"
	cachesync "github.com/huykn/mutation-cache/sync"
)

// MutationFunc performs a mutation against the backend and returns its
// response.
type MutationFunc func(ctx context.Context) (any, error)

// Stats represents engine statistics.
type Stats struct {
	Mutations        int64
	MutationFailures int64

	Applies       int64
	ApplyFailures int64
	Updated       int64
	Invalidated   int64
	Removed       int64
	Anomalies     int64

	Hits       int64
	StaleHits  int64
	Misses     int64
	Refetches  int64
	Superseded int64

	// Evictions counts entries the memory store's eviction policy dropped.
	// It stays zero for other backends.
	Evictions int64
}

// Engine keeps a cache of read results consistent with the mutations a client
// performs. Reads go through Fetch; writes go through Mutate, whose response
// is resolved into cache effects and applied to the store.
type Engine struct {
	config       Config
	logger       Logger
	store        cache.Store
	resolver     *effect.Resolver
	synchronizer *cachesync.Synchronizer
	client       *cache.Client
	closed       int32
	stats        Stats
}

func newEngine(cfg Config, store cache.Store) (*Engine, error) {
	var metrics *cachesync.Metrics
	if cfg.EnableMetrics {
		reg := cfg.MetricsRegisterer
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		var err error
		if metrics, err = cachesync.NewMetrics(reg, cfg.MetricsNamespace); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	e := &Engine{
		config:   cfg,
		logger:   cfg.Logger,
		store:    store,
		resolver: effect.NewResolver(cfg.Registry),
		synchronizer: cachesync.NewSynchronizer(cachesync.Options{
			Logger:    cfg.Logger,
			DebugMode: cfg.DebugMode,
			Metrics:   metrics,
		}),
		client: cache.NewClient(store, cache.ClientOptions{
			StaleWhileRevalidate: cfg.StaleWhileRevalidate,
			RefetchTimeout:       cfg.ContextTimeout,
			Logger:               cfg.Logger,
			DebugMode:            cfg.DebugMode,
			OnError:              cfg.OnError,
		}),
	}

	if cfg.DebugMode {
		e.logger.Info("Engine: started", "backend", cfg.StoreBackend,
			"kinds", len(e.resolver.Kinds()), "metrics", cfg.EnableMetrics)
	}
	return e, nil
}

// Fetch returns the value cached at k, calling fetch when the entry is missing
// or stale.
func (e *Engine) Fetch(ctx context.Context, k key.Key, fetch FetchFunc) (any, error) {
	if atomic.LoadInt32(&e.closed) != 0 {
		return nil, ErrEngineClosed
	}
	return e.client.Fetch(ctx, k, fetch)
}

// Mutate runs call and, once it has succeeded, brings the cache in line with
// its response. The kind is checked before call runs, so a misconfigured kind
// never reaches the backend. Cache synchronization failures are logged and
// passed to OnError; they never fail the mutation.
func (e *Engine) Mutate(ctx context.Context, kind string, params map[string]any, call MutationFunc) (any, error) {
	if atomic.LoadInt32(&e.closed) != 0 {
		return nil, ErrEngineClosed
	}
	if !e.resolver.Known(kind) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMutationKind, kind)
	}

	atomic.AddInt64(&e.stats.Mutations, 1)
	response, err := call(ctx)
	if err != nil {
		atomic.AddInt64(&e.stats.MutationFailures, 1)
		if e.config.DebugMode {
			e.logger.Debug("Mutate: mutation failed, cache left untouched", "kind", kind, "error", err)
		}
		return nil, err
	}

	// The mutation already happened; a sync failure, such as Close running
	// during call, is reported but does not fail it.
	if err := e.Sync(ctx, kind, params, response); err != nil {
		e.logger.Warn("Mutate: cache not synchronized", "kind", kind, "error", err)
		e.reportError(err)
	}
	return response, nil
}

// Sync applies the cache effects of a mutation that already completed
// elsewhere. Only an unknown kind is returned as an error.
func (e *Engine) Sync(ctx context.Context, kind string, params map[string]any, response any) error {
	if atomic.LoadInt32(&e.closed) != 0 {
		return ErrEngineClosed
	}

	d, err := e.resolver.Resolve(kind, params, response)
	if err != nil {
		e.logger.Error("Sync: cannot resolve mutation", "kind", kind, "error", err)
		return err
	}

	report, err := e.synchronizer.Apply(ctx, d, e.store)
	if err != nil {
		e.reportError(err)
		return nil
	}
	if e.config.DebugMode {
		e.logger.Debug("Sync: cache updated", "kind", kind, "apply_id", report.ID,
			"updated", report.Updated, "invalidated", report.Invalidated, "removed", report.Removed)
	}
	return nil
}

// Apply applies a descriptor directly and returns the outcome, including
// store failures.
func (e *Engine) Apply(ctx context.Context, d Descriptor) (Report, error) {
	if atomic.LoadInt32(&e.closed) != 0 {
		return Report{}, ErrEngineClosed
	}
	return e.synchronizer.Apply(ctx, d, e.store)
}

// Resolve returns the cache effects of a mutation without applying them.
func (e *Engine) Resolve(kind string, params map[string]any, response any) (Descriptor, error) {
	return e.resolver.Resolve(kind, params, response)
}

// OnApply registers a callback invoked after every synchronization.
func (e *Engine) OnApply(callback func(Report, error)) {
	e.synchronizer.OnApply(callback)
}

// Store returns the underlying cache store.
func (e *Engine) Store() Store {
	return e.store
}

// Wait blocks until background refetches have finished.
func (e *Engine) Wait() {
	e.client.Wait()
}

func (e *Engine) reportError(err error) {
	if e.config.OnError != nil {
		e.config.OnError(err)
	}
}

// Stats returns engine statistics.
func (e *Engine) Stats() Stats {
	sync := e.synchronizer.Stats()
	read := e.client.Stats()
	var evictions int64
	if mem, ok := e.store.(*cache.MemoryStore); ok {
		evictions = mem.Metrics().Evictions
	}
	return Stats{
		Mutations:        atomic.LoadInt64(&e.stats.Mutations),
		MutationFailures: atomic.LoadInt64(&e.stats.MutationFailures),
		Applies:          sync.Applies,
		ApplyFailures:    sync.Failures,
		Updated:          sync.Updated,
		Invalidated:      sync.Invalidated,
		Removed:          sync.Removed,
		Anomalies:        sync.Anomalies,
		Hits:             read.Hits,
		StaleHits:        read.StaleHits,
		Misses:           read.Misses,
		Refetches:        read.Refetches,
		Superseded:       read.Superseded,
		Evictions:        evictions,
	}
}

// Close waits for background refetches and closes the store.
func (e *Engine) Close() error {
	if !atomic.CompareAndSwapInt32(&e.closed, 0, 1) {
		return nil
	}
	e.client.Close()
	return e.store.Close()
}
