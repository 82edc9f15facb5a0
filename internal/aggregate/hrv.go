package aggregate

import "github.com/alessandro-lagamba/wellness-coach-sub007/internal/metric"

// HRV returns the preferred HRV reading and the in-range arithmetic mean.
// The most recent record wins; when its value is absent or zero the mean
// stands in for it. Zero values are treated as absent readings throughout:
// they neither qualify as the latest value nor enter the mean, so a batch
// of only zero-valued records yields nil for both. Both are also nil when
// no records exist.
func HRV(records []metric.RawRecord) (latest, average *float64) {
	if len(records) == 0 {
		return nil, nil
	}

	sum := 0.0
	count := 0
	var newest *metric.RawRecord
	for i := range records {
		record := &records[i]
		if record.Value > 0 {
			sum += record.Value
			count++
		}
		if newest == nil || record.End.After(newest.End) ||
			(record.End.Equal(newest.End) && record.Start.After(newest.Start)) {
			newest = record
		}
	}

	if count > 0 {
		average = metric.Float64(sum / float64(count))
	}

	if newest != nil && newest.Value > 0 {
		latest = metric.Float64(newest.Value)
	} else {
		latest = average
	}
	return latest, average
}
