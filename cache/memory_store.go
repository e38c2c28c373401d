package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/huykn/mutation-cache/key"
	"github.com/huykn/mutation-cache/types"
)

// memEntry is the value held by the local cache. Fields other than canon and
// head are guarded by MemoryStore.mu.
type memEntry struct {
	key       key.Key
	canon     string
	head      string
	value     any
	state     types.State
	updatedAt time.Time
	version   uint64
}

func (e *memEntry) snapshot() Entry {
	return Entry{
		Key:       e.key,
		Value:     e.value,
		State:     e.state,
		UpdatedAt: e.updatedAt,
		Version:   e.version,
	}
}

// MemoryStore is an in-process Store. The local cache decides eviction; the
// store keeps an index of live keys, bucketed by their first segment, so that
// pattern scans only visit keys that can match.
type MemoryStore struct {
	mu      sync.RWMutex
	local   LocalCache
	entries map[string]*memEntry
	heads   map[string]map[string]*memEntry
	closed  int32
	version uint64 // last version handed out, guarded by mu

	evictMu sync.Mutex
	evicted []*memEntry

	now func() time.Time
}

// NewMemoryStore creates a MemoryStore whose eviction policy comes from factory.
// A nil factory uses the default Ristretto configuration.
func NewMemoryStore(factory LocalCacheFactory) (*MemoryStore, error) {
	if factory == nil {
		factory = NewLFUCacheFactory(DefaultLocalCacheConfig())
	}

	s := &MemoryStore{
		entries: make(map[string]*memEntry),
		heads:   make(map[string]map[string]*memEntry),
		now:     time.Now,
	}

	local, err := factory.Create(s.onEvict)
	if err != nil {
		return nil, err
	}
	s.local = local

	return s, nil
}

// onEvict queues entries dropped by the local cache. It may run on the local
// cache's goroutine or inside a call made under s.mu, so it only takes evictMu.
func (s *MemoryStore) onEvict(value any) {
	e, ok := value.(*memEntry)
	if !ok {
		return
	}
	s.evictMu.Lock()
	s.evicted = append(s.evicted, e)
	s.evictMu.Unlock()
}

// drainEvicted removes queued evictions from the index. Caller holds s.mu.
func (s *MemoryStore) drainEvicted() {
	s.evictMu.Lock()
	evicted := s.evicted
	s.evicted = nil
	s.evictMu.Unlock()

	for _, e := range evicted {
		// The slot may have been rewritten since the eviction was queued.
		if s.entries[e.canon] == e {
			s.unindex(e)
		}
	}
}

func (s *MemoryStore) index(e *memEntry) {
	s.entries[e.canon] = e
	bucket, ok := s.heads[e.head]
	if !ok {
		bucket = make(map[string]*memEntry)
		s.heads[e.head] = bucket
	}
	bucket[e.canon] = e
}

func (s *MemoryStore) unindex(e *memEntry) {
	delete(s.entries, e.canon)
	if bucket, ok := s.heads[e.head]; ok {
		delete(bucket, e.canon)
		if len(bucket) == 0 {
			delete(s.heads, e.head)
		}
	}
}

func headOf(k key.Key) string {
	if len(k) == 0 {
		return ""
	}
	return key.New(k.Head()).String()
}

// Get returns the entry stored at the exact key k.
func (s *MemoryStore) Get(_ context.Context, k key.Key) (Entry, bool, error) {
	if atomic.LoadInt32(&s.closed) != 0 {
		return Entry{}, false, ErrStoreClosed
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	canon := k.String()
	e, ok := s.entries[canon]
	if !ok {
		return Entry{}, false, nil
	}
	// Consult the local cache as well so the eviction policy sees the access
	// and entries it already dropped are not served.
	if v, found := s.local.Get(canon); !found || v != e {
		return Entry{}, false, nil
	}
	return e.snapshot(), true, nil
}

// Set creates or overwrites the entry at the exact key k and marks it fresh.
func (s *MemoryStore) Set(_ context.Context, k key.Key, value any) error {
	if atomic.LoadInt32(&s.closed) != 0 {
		return ErrStoreClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.drainEvicted()

	s.set(k, k.String(), value)
	return nil
}

// CompareAndSet writes value at k only if the slot is still at version.
func (s *MemoryStore) CompareAndSet(_ context.Context, k key.Key, value any, version uint64) (bool, error) {
	if atomic.LoadInt32(&s.closed) != 0 {
		return false, ErrStoreClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.drainEvicted()

	canon := k.String()
	var current uint64
	if e, ok := s.entries[canon]; ok {
		current = e.version
	}
	if current != version {
		return false, nil
	}
	s.set(k, canon, value)
	return true, nil
}

// set writes one entry. Caller holds s.mu.
func (s *MemoryStore) set(k key.Key, canon string, value any) {
	e, ok := s.entries[canon]
	if !ok {
		e = &memEntry{
			key:   append(key.Key(nil), k...),
			canon: canon,
			head:  headOf(k),
		}
	}
	e.value = value
	e.state = types.Fresh
	e.updatedAt = s.now()
	e.version = s.nextVersion()

	if !s.local.Set(canon, e, 1) {
		// Rejected by the admission policy: the write is dropped, as if
		// evicted immediately.
		if ok {
			s.unindex(e)
		}
		return
	}
	s.index(e)
}

func (s *MemoryStore) nextVersion() uint64 {
	s.version++
	return s.version
}

// InvalidateWhere marks every entry whose key satisfies pred stale.
func (s *MemoryStore) InvalidateWhere(_ context.Context, pred func(key.Key) bool) (int, error) {
	if atomic.LoadInt32(&s.closed) != 0 {
		return 0, ErrStoreClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.drainEvicted()

	n := 0
	for _, e := range s.entries {
		if !pred(e.key) {
			continue
		}
		e.state = types.Stale
		e.version = s.nextVersion()
		n++
	}
	return n, nil
}

// RemoveWhere evicts every entry whose key satisfies pred.
func (s *MemoryStore) RemoveWhere(_ context.Context, pred func(key.Key) bool) (int, error) {
	if atomic.LoadInt32(&s.closed) != 0 {
		return 0, ErrStoreClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.drainEvicted()

	var victims []*memEntry
	for _, e := range s.entries {
		if pred(e.key) {
			victims = append(victims, e)
		}
	}
	for _, e := range victims {
		s.unindex(e)
		s.local.Delete(e.canon)
	}
	return len(victims), nil
}

// Keys returns a snapshot of every key currently held.
func (s *MemoryStore) Keys(_ context.Context) ([]key.Key, error) {
	if atomic.LoadInt32(&s.closed) != 0 {
		return nil, ErrStoreClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.drainEvicted()

	keys := make([]key.Key, 0, len(s.entries))
	for _, e := range s.entries {
		keys = append(keys, e.key)
	}
	return keys, nil
}

// KeysMatching returns the keys selected by any of patterns. Patterns with a
// first segment only visit the bucket of keys sharing that first segment.
func (s *MemoryStore) KeysMatching(_ context.Context, patterns []key.Key) ([]key.Key, error) {
	if atomic.LoadInt32(&s.closed) != 0 {
		return nil, ErrStoreClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.drainEvicted()

	seen := make(map[string]struct{})
	var keys []key.Key
	collect := func(candidates map[string]*memEntry, pattern key.Key) {
		for canon, e := range candidates {
			if _, dup := seen[canon]; dup {
				continue
			}
			if key.Match(pattern, e.key) {
				seen[canon] = struct{}{}
				keys = append(keys, e.key)
			}
		}
	}

	for _, p := range patterns {
		if len(p) == 0 {
			collect(s.entries, p)
			continue
		}
		collect(s.heads[headOf(p)], p)
	}
	return keys, nil
}

// Len returns the number of live entries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drainEvicted()
	return len(s.entries)
}

// Clear removes every entry.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*memEntry)
	s.heads = make(map[string]map[string]*memEntry)
	s.local.Clear()
	s.drainEvicted()
}

// Metrics returns the metrics of the local cache.
func (s *MemoryStore) Metrics() LocalCacheMetrics {
	return s.local.Metrics()
}

// Close releases the local cache.
func (s *MemoryStore) Close() error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return nil
	}
	s.local.Close()
	return nil
}
