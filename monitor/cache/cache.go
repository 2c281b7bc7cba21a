// Package cache memoizes the computed rollup so dashboard reads do not
// trigger a full recomputation every time.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jimfhahn/qa-server/monitor/types"
)

// BuildFunc computes a fresh rollup snapshot.
type BuildFunc func(ctx context.Context) (*types.PerformanceData, error)

// snapshot is an immutable cached rollup plus its expiry instant. Readers
// hold the pointer they loaded, so a concurrent refresh can never hand them
// a half-updated structure.
type snapshot struct {
	data    *types.PerformanceData
	expires time.Time
}

// SnapshotCache holds a single active rollup snapshot. Expiry triggers a
// lazy recompute on the next access; rebuilds are single-flight so
// concurrent readers hitting an expired cache trigger one recomputation,
// not a stampede.
type SnapshotCache struct {
	build BuildFunc
	ttl   time.Duration
	now   func() time.Time
	log   logrus.FieldLogger

	mu      sync.RWMutex // guards snap
	snap    *snapshot
	buildMu sync.Mutex // serializes recomputation
}

// Option customizes a SnapshotCache.
type Option func(*SnapshotCache)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *SnapshotCache) { c.now = now }
}

// NewSnapshotCache creates a cache. A zero ttl means every read recomputes.
func NewSnapshotCache(build BuildFunc, ttl time.Duration, log logrus.FieldLogger, opts ...Option) *SnapshotCache {
	c := &SnapshotCache{
		build: build,
		ttl:   ttl,
		now:   time.Now,
		log:   log.WithField("component", "snapshot_cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached snapshot, recomputing it first if it is missing or
// expired. Staleness within the TTL is by design; callers needing fresher
// data use Refresh.
func (c *SnapshotCache) Get(ctx context.Context) (*types.PerformanceData, error) {
	if data, ok := c.fresh(); ok {
		return data, nil
	}

	c.buildMu.Lock()
	defer c.buildMu.Unlock()

	// Another caller may have rebuilt while this one waited for the lock.
	if data, ok := c.fresh(); ok {
		return data, nil
	}

	return c.rebuild(ctx)
}

// Refresh recomputes the snapshot unconditionally (write_all) and publishes
// it atomically.
func (c *SnapshotCache) Refresh(ctx context.Context) (*types.PerformanceData, error) {
	c.buildMu.Lock()
	defer c.buildMu.Unlock()
	return c.rebuild(ctx)
}

// Invalidate drops the current snapshot. The next Get recomputes.
func (c *SnapshotCache) Invalidate() {
	c.mu.Lock()
	c.snap = nil
	c.mu.Unlock()
	c.log.Debug("Invalidated rollup snapshot")
}

// fresh returns the current snapshot if it exists and has not expired.
func (c *SnapshotCache) fresh() (*types.PerformanceData, bool) {
	c.mu.RLock()
	snap := c.snap
	c.mu.RUnlock()

	if snap == nil || !c.now().Before(snap.expires) {
		return nil, false
	}
	return snap.data, true
}

// rebuild computes a new snapshot and swaps it in whole. Callers hold buildMu.
func (c *SnapshotCache) rebuild(ctx context.Context) (*types.PerformanceData, error) {
	started := c.now()

	data, err := c.build(ctx)
	if err != nil {
		c.log.WithError(err).Error("Failed to rebuild rollup snapshot")
		return nil, err
	}

	next := &snapshot{data: data, expires: c.now().Add(c.ttl)}
	c.mu.Lock()
	c.snap = next
	c.mu.Unlock()

	c.log.WithField("took", c.now().Sub(started)).Debug("Rebuilt rollup snapshot")
	return data, nil
}
