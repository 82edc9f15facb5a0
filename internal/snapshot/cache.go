// Package snapshot caches the last known-good aggregated daily snapshot
// together with its provenance.
package snapshot

import (
	"sync"
	"time"

	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/metric"
)

// Cache holds the last snapshot, its provenance, and the time of the last
// successful sync. The sync coordinator is the only writer.
//
// Provenance is monotone: once a genuine snapshot is cached, a synthetic
// put is silently ignored. A genuine put always overwrites.
type Cache struct {
	mu         sync.RWMutex
	populated  bool
	snap       metric.DailySnapshot
	provenance metric.Provenance
	syncedAt   time.Time
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{}
}

// Get returns the cached snapshot, its provenance, and the sync timestamp.
// The last return value is false when nothing has been cached yet.
func (c *Cache) Get() (metric.DailySnapshot, metric.Provenance, time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap, c.provenance, c.syncedAt, c.populated
}

// Put stores the snapshot. It reports whether the value was accepted: a
// synthetic snapshot is rejected while a genuine one is cached.
func (c *Cache) Put(snap metric.DailySnapshot, provenance metric.Provenance, syncedAt time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if provenance == metric.ProvenanceSynthetic &&
		c.populated && c.provenance == metric.ProvenanceGenuine {
		return false
	}

	c.snap = snap
	c.provenance = provenance
	c.syncedAt = syncedAt
	c.populated = true
	return true
}

// DropSynthetic clears the cache only when the cached snapshot is
// synthetic. Used on a first-grant permission transition so placeholder
// data cannot mask newly readable real data.
func (c *Cache) DropSynthetic() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.populated || c.provenance != metric.ProvenanceSynthetic {
		return false
	}
	c.snap = metric.DailySnapshot{}
	c.provenance = ""
	c.syncedAt = time.Time{}
	c.populated = false
	return true
}
