package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/metric"
)

func hrRecord(end time.Time, start time.Time, bpm float64) metric.RawRecord {
	return metric.RawRecord{
		OriginID: "com.watch",
		Type:     metric.CategoryHeartRate,
		Start:    start,
		End:      end,
		Value:    bpm,
	}
}

func TestCurrentHeartRatePicksLatestByEndTime(t *testing.T) {
	base := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	records := []metric.RawRecord{
		hrRecord(base, base, 60),
		hrRecord(base.Add(2*time.Hour), base.Add(2*time.Hour), 75),
		hrRecord(base.Add(time.Hour), base.Add(time.Hour), 90),
	}

	current := CurrentHeartRate(records)
	require.NotNil(t, current)
	require.Equal(t, 75.0, *current)
}

func TestCurrentHeartRateTieBrokenByStartTime(t *testing.T) {
	end := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	records := []metric.RawRecord{
		hrRecord(end, end.Add(-10*time.Minute), 66),
		hrRecord(end, end.Add(-5*time.Minute), 71),
	}

	current := CurrentHeartRate(records)
	require.NotNil(t, current)
	require.Equal(t, 71.0, *current)
}

func TestCurrentHeartRateEmpty(t *testing.T) {
	require.Nil(t, CurrentHeartRate(nil))
}

func TestRestingHeartRateAveragesMorningWindow(t *testing.T) {
	day := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	records := []metric.RawRecord{
		hrRecord(day.Add(6*time.Hour+30*time.Minute), day.Add(6*time.Hour+30*time.Minute), 56),
		hrRecord(day.Add(8*time.Hour), day.Add(8*time.Hour), 60),
		hrRecord(day.Add(14*time.Hour), day.Add(14*time.Hour), 95), // outside 06:00-09:00
	}

	resting := RestingHeartRate(records, time.UTC)
	require.NotNil(t, resting)
	require.Equal(t, 58.0, *resting)
}

func TestRestingHeartRateAbsentWithoutMorningReadings(t *testing.T) {
	day := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	records := []metric.RawRecord{
		hrRecord(day.Add(14*time.Hour), day.Add(14*time.Hour), 95),
	}

	// Never defaulted to the current reading.
	require.Nil(t, RestingHeartRate(records, time.UTC))
}
