package aggregate

import (
	"context"
	"time"

	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/metric"
)

// WindowAttempt is one rung of a widening-window ladder: a read range plus
// an optional filter applied to the fetched records. A nil Filter keeps
// everything.
type WindowAttempt struct {
	Range  metric.TimeRange
	Filter func(metric.RawRecord) bool
}

// ReadFunc fetches raw records for one window attempt. The coordinator
// passes a closure over its provider readers.
type ReadFunc func(ctx context.Context, r metric.TimeRange) ([]metric.RawRecord, error)

// StepsLadder is the ordered list of windows tried for steps: the target
// day itself, then the trailing 24 hours, then the trailing 7 days filtered
// to records overlapping the target day. The ladder stops at the first
// attempt that yields a non-zero total.
func StepsLadder(day metric.TimeRange, now time.Time) []WindowAttempt {
	overlapsDay := func(record metric.RawRecord) bool {
		return day.Overlaps(metric.TimeRange{Start: record.Start, End: record.End}) ||
			day.Contains(record.Start)
	}
	return []WindowAttempt{
		{Range: day},
		{Range: metric.TimeRange{Start: now.Add(-24 * time.Hour), End: now}},
		{Range: metric.TimeRange{Start: now.Add(-7 * 24 * time.Hour), End: now}, Filter: overlapsDay},
	}
}

// HRVLadder tries the primary window, then the trailing 24 hours.
func HRVLadder(primary metric.TimeRange, now time.Time) []WindowAttempt {
	return []WindowAttempt{
		{Range: primary},
		{Range: metric.TimeRange{Start: now.Add(-24 * time.Hour), End: now}},
	}
}

// ResolveSteps consumes the ladder in order and returns the record set of
// the first rung whose reconciled total is non-zero. An empty result after
// the last rung means the metric is genuinely zero for the day.
func ResolveSteps(ctx context.Context, ladder []WindowAttempt, read ReadFunc) ([]metric.RawRecord, error) {
	for _, attempt := range ladder {
		records, err := read(ctx, attempt.Range)
		if err != nil {
			return nil, err
		}
		records = applyFilter(records, attempt.Filter)
		if StepsTotal(records) > 0 {
			return records, nil
		}
	}
	return nil, nil
}

// ResolveHRV consumes the ladder in order and returns the record set of the
// first rung that yields a usable reading.
func ResolveHRV(ctx context.Context, ladder []WindowAttempt, read ReadFunc) ([]metric.RawRecord, error) {
	for _, attempt := range ladder {
		records, err := read(ctx, attempt.Range)
		if err != nil {
			return nil, err
		}
		records = applyFilter(records, attempt.Filter)
		if latest, _ := HRV(records); latest != nil {
			return records, nil
		}
	}
	return nil, nil
}

func applyFilter(records []metric.RawRecord, filter func(metric.RawRecord) bool) []metric.RawRecord {
	if filter == nil {
		return records
	}
	out := make([]metric.RawRecord, 0, len(records))
	for _, record := range records {
		if filter(record) {
			out = append(out, record)
		}
	}
	return out
}
