package cache

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/huykn/mutation-cache/key"
)

// FetchFunc loads the authoritative value of one cache key from its source.
type FetchFunc func(ctx context.Context) (any, error)

// Client is the read path over a Store. Fresh entries are served from the
// store; missing entries are fetched; stale entries are refetched, either
// before returning or in the background when StaleWhileRevalidate is set.
// Concurrent fetches of the same key share one call to the source.
type Client struct {
	store   Store
	logger  Logger
	options ClientOptions
	group   singleflight.Group
	mu      sync.Mutex // orders wg.Add against Close
	wg      sync.WaitGroup
	closed  int32
	stats   Stats
}

// NewClient creates a read path client over store.
func NewClient(store Store, opts ClientOptions) *Client {
	if opts.Logger == nil {
		opts.Logger = NewNoOpLogger()
	}
	if opts.RefetchTimeout <= 0 {
		opts.RefetchTimeout = DefaultClientOptions().RefetchTimeout
	}
	return &Client{
		store:   store,
		logger:  opts.Logger,
		options: opts,
	}
}

// Store returns the store the client reads from.
func (c *Client) Store() Store {
	return c.store
}

// Fetch returns the value cached at k, calling fetch when the entry is
// missing or stale.
func (c *Client) Fetch(ctx context.Context, k key.Key, fetch FetchFunc) (any, error) {
	if atomic.LoadInt32(&c.closed) != 0 {
		return nil, ErrStoreClosed
	}

	entry, found, err := c.store.Get(ctx, k)
	if err != nil {
		atomic.AddInt64(&c.stats.Failures, 1)
		if c.options.DebugMode {
			c.logger.Error("Fetch: store read failed", "key", k.String(), "error", err)
		}
		return nil, err
	}

	if found && entry.Fresh() {
		atomic.AddInt64(&c.stats.Hits, 1)
		if c.options.DebugMode {
			c.logger.Debug("Fetch: fresh hit", "key", k.String())
		}
		return entry.Value, nil
	}

	if found && c.options.StaleWhileRevalidate {
		atomic.AddInt64(&c.stats.StaleHits, 1)
		if c.options.DebugMode {
			c.logger.Debug("Fetch: serving stale value, revalidating", "key", k.String())
		}
		c.revalidate(k, fetch)
		return entry.Value, nil
	}

	atomic.AddInt64(&c.stats.Misses, 1)
	if c.options.DebugMode {
		c.logger.Debug("Fetch: miss, fetching", "key", k.String(), "stale", found)
	}
	return c.refetch(ctx, k, fetch)
}

// Prefetch fetches k unless a fresh entry is already cached.
func (c *Client) Prefetch(ctx context.Context, k key.Key, fetch FetchFunc) error {
	_, err := c.Fetch(ctx, k, fetch)
	return err
}

// refetch calls fetch once per key across concurrent callers and writes the
// result to the store. The write only happens if the entry is unchanged since
// the fetch started, so a mutation applied meanwhile is never overwritten by
// the older source value. A failed store write is reported but the fetched
// value is still returned.
func (c *Client) refetch(ctx context.Context, k key.Key, fetch FetchFunc) (any, error) {
	canon := k.String()
	v, err, shared := c.group.Do(canon, func() (any, error) {
		atomic.AddInt64(&c.stats.Refetches, 1)
		before, _, err := c.store.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		written, err := c.store.CompareAndSet(ctx, k, value, before.Version)
		switch {
		case err != nil:
			c.reportError(err)
			c.logger.Warn("Fetch: failed to cache fetched value", "key", canon, "error", err)
		case !written:
			atomic.AddInt64(&c.stats.Superseded, 1)
			if c.options.DebugMode {
				c.logger.Debug("Fetch: entry changed during fetch, result not cached", "key", canon)
			}
		}
		return value, nil
	})
	if err != nil {
		atomic.AddInt64(&c.stats.Failures, 1)
		if c.options.DebugMode {
			c.logger.Debug("Fetch: source fetch failed", "key", canon, "error", err)
		}
		return nil, err
	}
	if shared && c.options.DebugMode {
		c.logger.Debug("Fetch: shared in-flight fetch", "key", canon)
	}
	return v, nil
}

func (c *Client) revalidate(k key.Key, fetch FetchFunc) {
	c.mu.Lock()
	if atomic.LoadInt32(&c.closed) != 0 {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.options.RefetchTimeout)
		defer cancel()
		if _, err := c.refetch(ctx, k, fetch); err != nil {
			c.reportError(err)
			c.logger.Warn("Fetch: background revalidation failed", "key", k.String(), "error", err)
		}
	}()
}

func (c *Client) reportError(err error) {
	if c.options.OnError != nil {
		c.options.OnError(err)
	}
}

// Wait blocks until every background revalidation has finished.
func (c *Client) Wait() {
	c.wg.Wait()
}

// Stats returns read path statistics.
func (c *Client) Stats() Stats {
	return Stats{
		Hits:      atomic.LoadInt64(&c.stats.Hits),
		StaleHits: atomic.LoadInt64(&c.stats.StaleHits),
		Misses:    atomic.LoadInt64(&c.stats.Misses),
		Refetches: atomic.LoadInt64(&c.stats.Refetches),
		Failures:  atomic.LoadInt64(&c.stats.Failures),

		Superseded: atomic.LoadInt64(&c.stats.Superseded),
	}
}

// Close stops accepting reads and waits for background revalidations. It does
// not close the store.
func (c *Client) Close() {
	c.mu.Lock()
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.wg.Wait()
}
