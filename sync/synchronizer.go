package sync

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/huykn/mutation-cache/cache"
	"github.com/huykn/mutation-cache/effect"
	"github.com/huykn/mutation-cache/key"
	"github.com/huykn/mutation-cache/types"
)

// Report summarizes one Apply call.
type Report struct {
	// ID correlates the log lines of one Apply call.
	ID string

	Updated     int
	Invalidated int
	Removed     int

	// Anomalies counts keys and patterns that can never match anything.
	Anomalies int

	Duration time.Duration
}

// Stats represents synchronizer statistics.
type Stats struct {
	Applies     int64
	Failures    int64
	Updated     int64
	Invalidated int64
	Removed     int64
	Anomalies   int64
}

// Options configures a Synchronizer.
type Options struct {
	// Logger is the logger for debug logging.
	// If nil, defaults to no-op logger.
	Logger cache.Logger

	// DebugMode enables debug logging.
	DebugMode bool

	// Metrics receives per-apply metrics. Optional.
	Metrics *Metrics
}

// Synchronizer applies effect descriptors to a cache store.
type Synchronizer struct {
	logger         cache.Logger
	options        Options
	callbacks      []func(Report, error)
	callbacksMutex sync.RWMutex
	stats          Stats
}

// NewSynchronizer creates a new Synchronizer.
func NewSynchronizer(opts Options) *Synchronizer {
	if opts.Logger == nil {
		opts.Logger = cache.NewNoOpLogger()
	}
	return &Synchronizer{
		logger:  opts.Logger,
		options: opts,
	}
}

// OnApply registers a callback invoked after every Apply call with its report
// and error.
func (s *Synchronizer) OnApply(callback func(Report, error)) {
	s.callbacksMutex.Lock()
	defer s.callbacksMutex.Unlock()
	s.callbacks = append(s.callbacks, callback)
}

// Apply applies d to store: updates first, then invalidations, then removals.
//
// Invalidate and remove targets are selected from one snapshot of the store's
// keys, taken after the updates, so a broader pattern can mark stale or evict
// a key written by the same descriptor. Keys created concurrently after the
// snapshot are not visited.
//
// Apply is not cancelled by ctx. If a store operation fails the remaining steps
// are abandoned and a *StepError wrapping ErrStoreUnavailable is returned;
// completed steps are kept.
func (s *Synchronizer) Apply(ctx context.Context, d effect.Descriptor, store cache.Store) (Report, error) {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	report := Report{ID: uuid.NewString()}

	if s.options.DebugMode {
		s.logger.Debug("Apply: start", "apply_id", report.ID,
			"updates", len(d.Update), "invalidate", len(d.Invalidate), "remove", len(d.Remove))
	}

	// Step 1: direct writes, in descriptor order.
	for _, u := range d.Update {
		if err := key.Validate(u.Key); err != nil {
			s.anomaly(&report, types.Update, err)
		}
		if err := store.Set(ctx, u.Key, u.Value); err != nil {
			return s.finish(report, start, s.fail(report, types.Update, err))
		}
		report.Updated++
		if s.options.DebugMode {
			s.logger.Debug("Apply: updated entry", "apply_id", report.ID, "key", u.Key.String())
		}
	}

	if len(d.Invalidate) == 0 && len(d.Remove) == 0 {
		return s.finish(report, start, nil)
	}

	for _, p := range d.Invalidate {
		if err := key.Validate(p); err != nil {
			s.anomaly(&report, types.Invalidate, err)
		}
	}
	for _, p := range d.Remove {
		if err := key.Validate(p); err != nil {
			s.anomaly(&report, types.Remove, err)
		}
	}

	invalidate, remove, err := s.selectTargets(ctx, store, d)
	if err != nil {
		return s.finish(report, start, s.fail(report, types.Invalidate, err))
	}

	// Step 2: mark stale.
	if len(invalidate) > 0 {
		n, err := store.InvalidateWhere(ctx, memberOf(invalidate))
		if err != nil {
			return s.finish(report, start, s.fail(report, types.Invalidate, err))
		}
		report.Invalidated = n
		if s.options.DebugMode {
			s.logger.Debug("Apply: invalidated entries", "apply_id", report.ID, "count", n)
		}
	}

	// Step 3: evict.
	if len(remove) > 0 {
		n, err := store.RemoveWhere(ctx, memberOf(remove))
		if err != nil {
			return s.finish(report, start, s.fail(report, types.Remove, err))
		}
		report.Removed = n
		if s.options.DebugMode {
			s.logger.Debug("Apply: removed entries", "apply_id", report.ID, "count", n)
		}
	}

	return s.finish(report, start, nil)
}

// selectTargets takes one snapshot of the candidate keys and splits it into
// the canonical keys to invalidate and to remove.
func (s *Synchronizer) selectTargets(ctx context.Context, store cache.Store, d effect.Descriptor) (map[string]struct{}, map[string]struct{}, error) {
	var (
		candidates []key.Key
		err        error
	)
	if scanner, ok := store.(cache.PatternScanner); ok {
		patterns := make([]key.Key, 0, len(d.Invalidate)+len(d.Remove))
		patterns = append(patterns, d.Invalidate...)
		patterns = append(patterns, d.Remove...)
		candidates, err = scanner.KeysMatching(ctx, patterns)
	} else {
		candidates, err = store.Keys(ctx)
	}
	if err != nil {
		return nil, nil, err
	}

	invalidate := make(map[string]struct{})
	remove := make(map[string]struct{})
	for _, k := range candidates {
		if key.MatchAny(d.Invalidate, k) {
			invalidate[k.String()] = struct{}{}
		}
		if key.MatchAny(d.Remove, k) {
			remove[k.String()] = struct{}{}
		}
	}
	return invalidate, remove, nil
}

func memberOf(set map[string]struct{}) func(key.Key) bool {
	return func(k key.Key) bool {
		_, ok := set[k.String()]
		return ok
	}
}

func (s *Synchronizer) anomaly(report *Report, step types.Action, err error) {
	report.Anomalies++
	s.options.Metrics.recordAnomaly()
	s.logger.Warn("Apply: pattern can never match", "apply_id", report.ID, "step", step, "error", err)
}

func (s *Synchronizer) fail(report Report, step types.Action, err error) error {
	atomic.AddInt64(&s.stats.Failures, 1)
	s.options.Metrics.recordFailure(step)
	s.logger.Error("Apply: store failed, abandoning remaining steps", "apply_id", report.ID,
		"step", step, "updated", report.Updated, "invalidated", report.Invalidated, "error", err)
	return &StepError{ApplyID: report.ID, Step: step, Err: err}
}

func (s *Synchronizer) finish(report Report, start time.Time, err error) (Report, error) {
	report.Duration = time.Since(start)

	atomic.AddInt64(&s.stats.Applies, 1)
	atomic.AddInt64(&s.stats.Updated, int64(report.Updated))
	atomic.AddInt64(&s.stats.Invalidated, int64(report.Invalidated))
	atomic.AddInt64(&s.stats.Removed, int64(report.Removed))
	atomic.AddInt64(&s.stats.Anomalies, int64(report.Anomalies))
	s.options.Metrics.recordApply(report)

	if err == nil && s.options.DebugMode {
		s.logger.Debug("Apply: done", "apply_id", report.ID, "updated", report.Updated,
			"invalidated", report.Invalidated, "removed", report.Removed, "duration", report.Duration)
	}

	s.callbacksMutex.RLock()
	callbacks := s.callbacks
	s.callbacksMutex.RUnlock()

	for _, callback := range callbacks {
		callback(report, err)
	}

	return report, err
}

// Stats returns synchronizer statistics.
func (s *Synchronizer) Stats() Stats {
	return Stats{
		Applies:     atomic.LoadInt64(&s.stats.Applies),
		Failures:    atomic.LoadInt64(&s.stats.Failures),
		Updated:     atomic.LoadInt64(&s.stats.Updated),
		Invalidated: atomic.LoadInt64(&s.stats.Invalidated),
		Removed:     atomic.LoadInt64(&s.stats.Removed),
		Anomalies:   atomic.LoadInt64(&s.stats.Anomalies),
	}
}
