package provider

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/metric"
)

func TestNormalizeFlatRecords(t *testing.T) {
	payload := []byte(`{
		"records": [
			{"origin": "com.watch", "start_time": "2025-03-10T08:00:00Z", "end_time": "2025-03-10T08:15:00Z", "count": 520, "metadata": {"id": "m-1"}},
			{"package_name": "com.phone", "start_time": "2025-03-10T09:00:00Z", "end_time": "2025-03-10T09:15:00Z", "value": 310, "metadata_id": "m-2"},
			{"start_time": "2025-03-10T10:00:00Z", "end_time": "2025-03-10T10:15:00Z", "bpm": 72}
		],
		"next_page_token": "abc"
	}`)

	page, err := Normalize("bridge-0", metric.CategorySteps, payload)
	require.NoError(t, err)
	require.Equal(t, "abc", page.NextToken)
	require.Len(t, page.Records, 3)

	require.Equal(t, "com.watch", page.Records[0].OriginID)
	require.Equal(t, 520.0, page.Records[0].Value)
	require.Equal(t, "m-1", page.Records[0].MetadataID)

	require.Equal(t, "com.phone", page.Records[1].OriginID)
	require.Equal(t, "m-2", page.Records[1].MetadataID)

	// Origin falls back to the bridge identity; bpm doubles as the value.
	require.Equal(t, "bridge-0", page.Records[2].OriginID)
	require.Equal(t, 72.0, page.Records[2].Value)
}

func TestNormalizeBucketedPoints(t *testing.T) {
	payload := []byte(`{
		"buckets": [
			{"origin": "com.watch", "points": [
				{"start_time": "2025-03-10T08:00:00Z", "end_time": "2025-03-10T09:00:00Z", "value": 1200},
				{"origin": "com.strap", "start_time": "2025-03-10T09:00:00Z", "end_time": "2025-03-10T10:00:00Z", "value": 800}
			]}
		],
		"page_token": "legacy"
	}`)

	page, err := Normalize("bridge-0", metric.CategorySteps, payload)
	require.NoError(t, err)
	require.Equal(t, "legacy", page.NextToken)
	require.Len(t, page.Records, 2)
	require.Equal(t, "com.watch", page.Records[0].OriginID, "point inherits the bucket origin")
	require.Equal(t, "com.strap", page.Records[1].OriginID, "point-level origin wins")
}

func TestNormalizeSleepSessions(t *testing.T) {
	payload := []byte(`{
		"sessions": [
			{"origin": "com.watch", "start_time": "2025-03-09T22:00:00Z", "end_time": "2025-03-10T06:00:00Z",
			 "stages": [
				{"stage": "deep", "start_time": "2025-03-09T23:00:00Z", "end_time": "2025-03-10T01:00:00Z"},
				{"label": "REM", "start_time": "2025-03-10T02:00:00Z", "end_time": "2025-03-10T03:30:00Z"},
				{"stage": "light", "start_time": "2025-03-10T03:30:00Z"}
			 ]}
		]
	}`)

	page, err := Normalize("bridge-0", metric.CategorySleep, payload)
	require.NoError(t, err)
	require.Len(t, page.Records, 1)

	session := page.Records[0]
	require.Equal(t, metric.CategorySleep, session.Type)
	require.Equal(t, 480.0, session.Value)
	// The stage missing its end time is dropped, not guessed.
	require.Len(t, session.Stages, 2)
	require.Equal(t, "deep", session.Stages[0].Stage)
	require.Equal(t, "REM", session.Stages[1].Stage)
}

func TestNormalizeDropsRecordsWithoutTimestamps(t *testing.T) {
	payload := []byte(`{"records": [{"origin": "com.watch", "value": 500}]}`)
	page, err := Normalize("bridge-0", metric.CategorySteps, payload)
	require.NoError(t, err)
	require.Empty(t, page.Records)
}

func TestNormalizeMalformedPayload(t *testing.T) {
	_, err := Normalize("bridge-0", metric.CategorySteps, []byte(`{"records": `))
	require.Error(t, err)
}
