// Package engine implements the sync coordinator: the single long-lived
// component that orchestrates provider reads, aggregation, caching, and the
// fallback policy for the health metrics reconciliation engine.
package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/metric"
	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/permission"
	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/provider"
	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/snapshot"
)

// Mirror persists genuine snapshots to the remote backend. Implementations
// must be idempotent on (userID, day).
type Mirror interface {
	UpsertDailySnapshot(ctx context.Context, userID string, day time.Time, snap metric.DailySnapshot, syncedAt time.Time) error
}

// State names the coordinator's position in its cycle. Succeeded and
// Failed are rest states: they hold the last cycle's outcome until the
// next cycle begins, standing in for a return to idle so callers can see
// how the previous sync ended. InFlight, not State, gates concurrent
// work; Idle only appears before the first cycle.
type State string

const (
	StateIdle      State = "idle"
	StateSyncing   State = "syncing"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// SyncState is the coordinator-owned bookkeeping other components consult
// to avoid duplicate work.
type SyncState struct {
	State         State
	InFlight      bool
	LastAttemptAt time.Time
	LastSuccessAt time.Time
}

// Result is what every GetSnapshot call returns: the snapshot, how it was
// produced, and when.
type Result struct {
	Snapshot   metric.DailySnapshot
	Provenance metric.Provenance
	SyncedAt   time.Time
}

const (
	defaultDebounce     = 60 * time.Second
	defaultCycleTimeout = 30 * time.Second
)

// Option configures optional coordinator behaviour.
type Option func(*Coordinator)

// WithLogger overrides the logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// WithDebounce overrides the minimum interval between non-forced cycles.
func WithDebounce(d time.Duration) Option {
	return func(c *Coordinator) { c.debounce = d }
}

// WithCycleTimeout bounds one sync cycle. The shipped app blocked forever
// on a hung provider; the engine does not.
func WithCycleTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.cycleTimeout = d }
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithLocation sets the local time zone used for day boundaries and the
// resting heart rate window.
func WithLocation(loc *time.Location) Option {
	return func(c *Coordinator) { c.loc = loc }
}

// Coordinator owns the snapshot cache and sync state. Construct exactly one
// per process at the composition root and pass it to callers; it is safe
// for concurrent use.
type Coordinator struct {
	userID  string
	readers []provider.Reader
	perms   *permission.Tracker
	cache   *snapshot.Cache
	mirror  Mirror

	group singleflight.Group

	mu            sync.Mutex
	state         SyncState
	pendingResync bool

	debounce     time.Duration
	cycleTimeout time.Duration
	now          func() time.Time
	loc          *time.Location
	logger       *log.Logger
}

// New constructs a Coordinator. mirror may be nil when remote persistence
// is disabled.
func New(userID string, readers []provider.Reader, perms *permission.Tracker, cache *snapshot.Cache, mirror Mirror, opts ...Option) *Coordinator {
	c := &Coordinator{
		userID:       userID,
		readers:      readers,
		perms:        perms,
		cache:        cache,
		mirror:       mirror,
		state:        SyncState{State: StateIdle},
		debounce:     defaultDebounce,
		cycleTimeout: defaultCycleTimeout,
		now:          time.Now,
		loc:          time.Local,
		logger:       log.New(log.Writer(), "[engine] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetSnapshot returns today's snapshot and its provenance. Provider
// failures never surface here: the fallback policy always produces a
// snapshot with an honest provenance tag. The only caller-visible error is
// the caller's own context expiring while a cycle is in flight.
//
// Non-forced calls inside the debounce window are served from the cache.
// Calls that start or join a cycle share a single execution: at most one
// set of provider reads runs at a time.
func (c *Coordinator) GetSnapshot(ctx context.Context, force bool) (Result, error) {
	c.mu.Lock()
	lastSuccess := c.state.LastSuccessAt
	pending := c.pendingResync
	c.mu.Unlock()

	if !force && !pending && !lastSuccess.IsZero() && c.now().Sub(lastSuccess) < c.debounce {
		if snap, prov, at, ok := c.cache.Get(); ok {
			return Result{Snapshot: snap, Provenance: prov, SyncedAt: at}, nil
		}
	}

	ch := c.group.DoChan("sync", func() (interface{}, error) {
		return c.runCycle(), nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Result{}, res.Err
		}
		return res.Val.(Result), nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// RefreshPermissions re-reads permission state. On a first-grant transition
// the cached synthetic snapshot is discarded and the next GetSnapshot
// performs a full cycle regardless of the debounce window.
func (c *Coordinator) RefreshPermissions(ctx context.Context) error {
	_, firstGrant, err := c.perms.Refresh(ctx)
	if err != nil {
		return err
	}
	if firstGrant {
		c.cache.DropSynthetic()
		c.mu.Lock()
		c.pendingResync = true
		c.mu.Unlock()
		c.logger.Printf("first permission grant: synthetic cache dropped, resync pending")
	}
	return nil
}

// IsMetricAvailable reports whether the category is granted and at least
// one provider can serve it.
func (c *Coordinator) IsMetricAvailable(category metric.Category) bool {
	if !c.perms.Current().Granted(category) {
		return false
	}
	for _, reader := range c.readers {
		if reader.Available() {
			return true
		}
	}
	return false
}

// State returns a copy of the coordinator's sync state.
func (c *Coordinator) State() SyncState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
