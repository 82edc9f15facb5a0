package aggregate

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/metric"
)

// Sleep aggregates sleep-session records into the per-day breakdown.
//
// Sessions that ended before the start of the target day, or more than 24
// hours before now, are discarded. Sessions are deduplicated on their
// (start, end) pair. Stage sub-intervals are classified by case-insensitive
// substring match on the provider's stage label and accumulate minutes
// bounded by their own interval, not by the parent session.
func Sleep(records []metric.RawRecord, day metric.TimeRange, now time.Time) metric.SleepSummary {
	type sessionKey struct {
		start int64
		end   int64
	}
	seen := make(map[sessionKey]struct{}, len(records))

	var total, deep, rem, light time.Duration
	for _, session := range records {
		if session.End.Before(day.Start) {
			continue
		}
		if now.Sub(session.End) > 24*time.Hour {
			continue
		}

		key := sessionKey{start: session.Start.UnixNano(), end: session.End.UnixNano()}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		total += session.End.Sub(session.Start)

		for _, stage := range session.Stages {
			duration := stage.End.Sub(stage.Start)
			if duration <= 0 {
				continue
			}
			switch classifyStage(stage.Stage) {
			case stageDeep:
				deep += duration
			case stageRem:
				rem += duration
			default:
				light += duration
			}
		}
	}

	summary := metric.SleepSummary{
		TotalMinutes: roundMinutes(total),
		DeepMinutes:  roundMinutes(deep),
		RemMinutes:   roundMinutes(rem),
		LightMinutes: roundMinutes(light),
	}

	if summary.TotalMinutes > 0 {
		summary.Quality = metric.Int(sleepQuality(summary))
	}
	return summary
}

type stageClass int

const (
	stageLight stageClass = iota
	stageDeep
	stageRem
)

func classifyStage(label string) stageClass {
	lower := strings.ToLower(label)
	switch {
	case strings.Contains(lower, "deep"):
		return stageDeep
	case strings.Contains(lower, "rem"):
		return stageRem
	default:
		return stageLight
	}
}

// sleepQuality scores 0-100: up to 60 points for duration against an
// 8-hour target, up to 40 for the deep+REM share of total sleep.
func sleepQuality(s metric.SleepSummary) int {
	hours := float64(s.TotalMinutes) / 60.0
	durationScore := math.Min(hours/8.0, 1.0) * 60.0

	restorative := float64(s.DeepMinutes + s.RemMinutes)
	shareScore := math.Min(restorative/float64(s.TotalMinutes), 1.0) * 40.0

	score := int(math.Round(durationScore + shareScore))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func roundMinutes(d time.Duration) int {
	return int(math.Round(d.Minutes()))
}

// DedupSessions is exposed for callers that need the filtered session list
// itself rather than the summary.
func DedupSessions(records []metric.RawRecord) []metric.RawRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]metric.RawRecord, 0, len(records))
	for _, session := range records {
		key := fmt.Sprintf("%d|%d", session.Start.UnixNano(), session.End.UnixNano())
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, session)
	}
	return out
}
