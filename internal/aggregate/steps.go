// Package aggregate holds the pure deduplication and aggregation core. Every
// function here is deterministic: identical raw record input produces
// identical output, which the sync coordinator relies on for idempotent
// cycles.
package aggregate

import (
	"fmt"

	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/metric"
)

// DedupSteps removes structural duplicates: two records are the same
// observation only when origin, time range, metadata id, and value all
// match exactly. Overlapping-but-different records are kept; cross-origin
// double counting is handled by StepsTotal, not here.
func DedupSteps(records []metric.RawRecord) []metric.RawRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]metric.RawRecord, 0, len(records))
	for _, record := range records {
		key := structuralKey(record)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, record)
	}
	return out
}

func structuralKey(r metric.RawRecord) string {
	return fmt.Sprintf("%s|%d|%d|%s|%g",
		r.OriginID, r.Start.UnixNano(), r.End.UnixNano(), r.MetadataID, r.Value)
}

// StepsTotal reconciles deduplicated step records from all origins into one
// day total.
//
// When exactly one origin reports non-zero steps, its sum is used directly:
// that is the common single-provider case. With multiple reporting origins
// the total is the maximum per-origin sum, not the sum across origins, so a
// phone and a wearable both recording the same walk are not double counted.
// Two providers could legitimately report disjoint activity that should be
// summed; the max is a known approximation kept for compatibility with the
// shipped behaviour.
func StepsTotal(records []metric.RawRecord) int {
	deduped := DedupSteps(records)

	perOrigin := make(map[string]float64)
	for _, record := range deduped {
		perOrigin[record.OriginID] += record.Value
	}

	var nonZeroOrigins []string
	for origin, total := range perOrigin {
		if total > 0 {
			nonZeroOrigins = append(nonZeroOrigins, origin)
		}
	}

	if len(nonZeroOrigins) == 1 {
		return int(perOrigin[nonZeroOrigins[0]])
	}

	max := 0.0
	for _, total := range perOrigin {
		if total > max {
			max = total
		}
	}
	return int(max)
}

const (
	metersPerStep   = 0.762
	caloriesPerStep = 0.04
)

// DeriveDistanceKM converts the reconciled step count into kilometers.
// Derived fields always come from the final step count, never from raw
// records, so dedup errors are not compounded.
func DeriveDistanceKM(steps int) float64 {
	return float64(steps) * metersPerStep / 1000.0
}

// DeriveCalories estimates active calories from the reconciled step count.
func DeriveCalories(steps int) float64 {
	return float64(steps) * caloriesPerStep
}
