// Package metric defines the shared data model for the health metrics
// reconciliation engine: metric categories, raw provider records, and the
// aggregated daily snapshot served to the rest of the application.
package metric

import "time"

// Category identifies one health metric tracked by the engine.
type Category string

const (
	CategorySteps         Category = "steps"
	CategoryHeartRate     Category = "heart_rate"
	CategorySleep         Category = "sleep"
	CategoryHRV           Category = "hrv"
	CategoryBloodPressure Category = "blood_pressure"
	CategoryWeight        Category = "weight"
	CategoryBodyFat       Category = "body_fat"
	CategoryHydration     Category = "hydration"
	CategoryMindfulness   Category = "mindfulness"
)

// Categories returns every metric category the engine knows about, in a
// stable order.
func Categories() []Category {
	return []Category{
		CategorySteps,
		CategoryHeartRate,
		CategorySleep,
		CategoryHRV,
		CategoryBloodPressure,
		CategoryWeight,
		CategoryBodyFat,
		CategoryHydration,
		CategoryMindfulness,
	}
}

// Valid reports whether the category is one the engine tracks.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// TimeRange is a half-open interval [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Overlaps reports whether the two ranges share any instant.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// Day returns the calendar-day range containing t in the given location.
func Day(t time.Time, loc *time.Location) TimeRange {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return TimeRange{Start: start, End: start.Add(24 * time.Hour)}
}

// StageInterval is one sleep-stage sub-interval carried by a sleep session
// record. Stage labels are free-form provider strings ("Deep sleep",
// "REM", "light", ...); classification happens in the aggregator.
type StageInterval struct {
	Stage string
	Start time.Time
	End   time.Time
}

// RawRecord is a single observation from one provider origin. Records are
// immutable: they are produced by a provider reader, consumed by the
// aggregator, and discarded after the sync cycle.
type RawRecord struct {
	OriginID   string
	Type       Category
	Start      time.Time
	End        time.Time
	Value      float64
	MetadataID string // provider idempotency key, may be empty
	Stages     []StageInterval
}

// Provenance classifies how a snapshot was produced.
type Provenance string

const (
	// ProvenanceGenuine marks a snapshot derived from at least one real
	// provider record.
	ProvenanceGenuine Provenance = "genuine"
	// ProvenanceSynthetic marks a generated placeholder. It is only ever
	// served before the first genuine snapshot exists.
	ProvenanceSynthetic Provenance = "synthetic"
)

// SleepSummary is the per-day sleep breakdown.
type SleepSummary struct {
	TotalMinutes int
	DeepMinutes  int
	RemMinutes   int
	LightMinutes int
	// Quality is the 0-100 score; nil when no sleep was recorded.
	Quality *int
}

// DailySnapshot is the aggregated result for one calendar day. Fields are
// zero or nil when the corresponding permission is not granted or no record
// exists.
type DailySnapshot struct {
	Day time.Time // midnight of the target day, engine-local

	Steps      int
	DistanceKM float64 // derived from Steps
	Calories   float64 // derived from Steps

	HeartRateBPM     *float64 // most recent reading
	RestingHeartRate *float64 // 06:00-09:00 average, nil when no morning data

	HRVMillis  *float64 // most recent reading, or in-range average fallback
	HRVAverage *float64 // arithmetic mean of in-range readings

	Sleep SleepSummary

	WeightKG       *float64 // most recent reading
	BodyFatPercent *float64 // most recent reading
	HydrationML    float64  // sum of intake records
	MindfulMinutes int      // sum of session durations
}

// Float64 returns a pointer to v. Convenience for optional snapshot fields.
func Float64(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
