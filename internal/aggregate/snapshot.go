package aggregate

import (
	"math"
	"time"

	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/metric"
)

// Snapshot assembles the daily snapshot from per-category record sets. The
// caller (the sync coordinator) has already applied the widening-window
// ladders, so each set is exactly the batch to aggregate. Categories with
// no entry in the map come out zero or nil.
//
// Snapshot is pure: the same input always yields the same output.
func Snapshot(day metric.TimeRange, now time.Time, loc *time.Location, records map[metric.Category][]metric.RawRecord) metric.DailySnapshot {
	snap := metric.DailySnapshot{Day: day.Start}

	steps := StepsTotal(records[metric.CategorySteps])
	snap.Steps = steps
	snap.DistanceKM = DeriveDistanceKM(steps)
	snap.Calories = DeriveCalories(steps)

	heartRate := records[metric.CategoryHeartRate]
	snap.HeartRateBPM = CurrentHeartRate(heartRate)
	snap.RestingHeartRate = RestingHeartRate(heartRate, loc)

	snap.HRVMillis, snap.HRVAverage = HRV(records[metric.CategoryHRV])

	snap.Sleep = Sleep(records[metric.CategorySleep], day, now)

	snap.WeightKG = latestValue(records[metric.CategoryWeight])
	snap.BodyFatPercent = latestValue(records[metric.CategoryBodyFat])
	snap.HydrationML = sumValues(records[metric.CategoryHydration])
	snap.MindfulMinutes = sumMinutes(records[metric.CategoryMindfulness])

	return snap
}

func latestValue(records []metric.RawRecord) *float64 {
	var newest *metric.RawRecord
	for i := range records {
		record := &records[i]
		if record.Value <= 0 {
			continue
		}
		if newest == nil || record.End.After(newest.End) ||
			(record.End.Equal(newest.End) && record.Start.After(newest.Start)) {
			newest = record
		}
	}
	if newest == nil {
		return nil
	}
	return metric.Float64(newest.Value)
}

func sumValues(records []metric.RawRecord) float64 {
	sum := 0.0
	for _, record := range records {
		sum += record.Value
	}
	return sum
}

func sumMinutes(records []metric.RawRecord) int {
	var total time.Duration
	for _, record := range records {
		total += record.End.Sub(record.Start)
	}
	return int(math.Round(total.Minutes()))
}
