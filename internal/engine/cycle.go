package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/aggregate"
	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/metric"
	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/observability"
	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/permission"
	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/provider"
)

var (
	errAllReadsFailed = errors.New("every provider read failed")
	errNoPermissions  = errors.New("no metric categories granted")
)

// runCycle executes one full sync. It never returns an error: provider
// failures are absorbed by the fallback ladder and reported through the
// provenance tag. The cycle runs on its own context so one caller's
// cancellation cannot abort a shared execution; the cycle timeout bounds a
// hung provider instead.
func (c *Coordinator) runCycle() Result {
	start := c.now()

	c.mu.Lock()
	c.state.State = StateSyncing
	c.state.InFlight = true
	c.state.LastAttemptAt = start
	c.mu.Unlock()
	observability.SetInFlight(true)

	ctx, cancel := context.WithTimeout(context.Background(), c.cycleTimeout)
	defer cancel()

	perms := c.perms.Current()
	day := metric.Day(start, c.loc)

	snap, err := c.aggregateOnce(ctx, perms, day)
	elapsed := c.now().Sub(start)
	observability.SetInFlight(false)

	if err != nil {
		c.logger.Printf("sync cycle failed: %v", err)
		observability.RecordCycle("failed", elapsed)
		c.mu.Lock()
		c.state.State = StateFailed
		c.state.InFlight = false
		c.mu.Unlock()
		return c.fallback(perms, day)
	}

	syncedAt := c.now()
	c.cache.Put(snap, metric.ProvenanceGenuine, syncedAt)
	observability.RecordCycle("succeeded", elapsed)
	observability.RecordGenuineSync(syncedAt)

	c.mu.Lock()
	c.state.State = StateSucceeded
	c.state.InFlight = false
	c.state.LastSuccessAt = syncedAt
	c.pendingResync = false
	c.mu.Unlock()

	c.mirrorGenuine(ctx, day, snap, syncedAt)

	return Result{Snapshot: snap, Provenance: metric.ProvenanceGenuine, SyncedAt: syncedAt}
}

// aggregateOnce reads every permitted category from every available
// provider and assembles the snapshot. A read failure on one provider does
// not stop the others; the cycle fails only when no provider is available
// at all, or when every single read errored.
func (c *Coordinator) aggregateOnce(ctx context.Context, perms permission.Set, day metric.TimeRange) (metric.DailySnapshot, error) {
	// Without a single granted category there is nothing genuine to
	// produce; the fallback ladder decides what the caller sees.
	if !perms.Any() {
		return metric.DailySnapshot{}, errNoPermissions
	}

	usable := make([]provider.Reader, 0, len(c.readers))
	for _, reader := range c.readers {
		if reader.Available() {
			usable = append(usable, reader)
		}
	}
	if len(usable) == 0 {
		return metric.DailySnapshot{}, provider.ErrUnavailable
	}

	var succeeded, failed int
	readAll := func(category metric.Category) aggregate.ReadFunc {
		return func(ctx context.Context, r metric.TimeRange) ([]metric.RawRecord, error) {
			var combined []metric.RawRecord
			for _, reader := range usable {
				records, err := reader.Read(ctx, category, r)
				if err != nil {
					if errors.Is(err, context.DeadlineExceeded) {
						return nil, err
					}
					failed++
					observability.RecordReadFailure(reader.Origin())
					c.logger.Printf("read failure (origin=%s, category=%s): %v", reader.Origin(), category, err)
					continue
				}
				succeeded++
				combined = append(combined, records...)
			}
			return combined, nil
		}
	}

	now := c.now()
	records := make(map[metric.Category][]metric.RawRecord)

	for _, category := range metric.Categories() {
		if !perms.Granted(category) {
			continue
		}

		var (
			batch []metric.RawRecord
			err   error
		)
		switch category {
		case metric.CategorySteps:
			batch, err = aggregate.ResolveSteps(ctx, aggregate.StepsLadder(day, now), readAll(category))
		case metric.CategoryHRV:
			batch, err = aggregate.ResolveHRV(ctx, aggregate.HRVLadder(day, now), readAll(category))
		default:
			batch, err = readAll(category)(ctx, day)
		}
		if err != nil {
			return metric.DailySnapshot{}, fmt.Errorf("category %s: %w", category, err)
		}
		records[category] = batch
	}

	if succeeded == 0 && failed > 0 {
		return metric.DailySnapshot{}, errAllReadsFailed
	}

	return aggregate.Snapshot(day, now, c.loc, records), nil
}

// fallback applies the strict failure ladder:
//  1. a cached genuine snapshot is returned unchanged and the failure is
//     absorbed — stale real data beats an error;
//  2. with no permission granted, the cached snapshot (possibly empty) is
//     returned without synthesizing anything;
//  3. otherwise a synthetic placeholder is generated, cached, and returned
//     clearly labelled.
func (c *Coordinator) fallback(perms permission.Set, day metric.TimeRange) Result {
	if snap, prov, at, ok := c.cache.Get(); ok && prov == metric.ProvenanceGenuine {
		return Result{Snapshot: snap, Provenance: prov, SyncedAt: at}
	}

	if !perms.Any() {
		snap, prov, at, ok := c.cache.Get()
		if !ok {
			prov = metric.ProvenanceSynthetic
		}
		return Result{Snapshot: snap, Provenance: prov, SyncedAt: at}
	}

	snap := syntheticSnapshot(day)
	at := c.now()
	c.cache.Put(snap, metric.ProvenanceSynthetic, at)
	return Result{Snapshot: snap, Provenance: metric.ProvenanceSynthetic, SyncedAt: at}
}

// mirrorGenuine pushes the snapshot to the remote backend. Best-effort: a
// failure is logged and counted, the returned snapshot is unaffected, and
// delivery is retried by the mirror's own dispatch loop rather than inline.
func (c *Coordinator) mirrorGenuine(ctx context.Context, day metric.TimeRange, snap metric.DailySnapshot, syncedAt time.Time) {
	if c.mirror == nil {
		return
	}
	if err := c.mirror.UpsertDailySnapshot(ctx, c.userID, day.Start, snap, syncedAt); err != nil {
		observability.RecordMirrorFailure()
		c.logger.Printf("mirror failed (day=%s): %v", day.Start.Format("2006-01-02"), err)
	}
}
