package aggregate

import (
	"time"

	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/metric"
)

// CurrentHeartRate picks the single most recent reading by end time, with
// ties broken by start time. Returns nil when no records exist.
func CurrentHeartRate(records []metric.RawRecord) *float64 {
	var best *metric.RawRecord
	for i := range records {
		record := &records[i]
		if best == nil || record.End.After(best.End) ||
			(record.End.Equal(best.End) && record.Start.After(best.Start)) {
			best = record
		}
	}
	if best == nil {
		return nil
	}
	return metric.Float64(best.Value)
}

// RestingHeartRate averages readings taken between 06:00 and 09:00 local
// time. When no morning readings exist the result is nil, never defaulted
// to the current reading.
func RestingHeartRate(records []metric.RawRecord, loc *time.Location) *float64 {
	sum := 0.0
	count := 0
	for _, record := range records {
		hour := record.End.In(loc).Hour()
		if hour >= 6 && hour < 9 {
			sum += record.Value
			count++
		}
	}
	if count == 0 {
		return nil
	}
	return metric.Float64(sum / float64(count))
}
