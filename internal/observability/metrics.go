package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	syncCycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "health_engine",
		Subsystem: "sync",
		Name:      "cycles_total",
		Help:      "Number of completed sync cycles, labeled by outcome.",
	}, []string{"outcome"})

	cycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "health_engine",
		Subsystem: "sync",
		Name:      "cycle_duration_seconds",
		Help:      "Time spent reading providers and aggregating one cycle.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	inFlightGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "health_engine",
		Subsystem: "sync",
		Name:      "in_flight",
		Help:      "Whether a sync cycle is currently executing (0 or 1).",
	})

	lastGenuineGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "health_engine",
		Subsystem: "sync",
		Name:      "last_genuine_sync_timestamp_seconds",
		Help:      "Unix timestamp of the most recent genuine snapshot.",
	})

	readFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "health_engine",
		Subsystem: "provider",
		Name:      "read_failures_total",
		Help:      "Number of failed provider reads, labeled by origin.",
	}, []string{"origin"})

	mirrorFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "health_engine",
		Subsystem: "mirror",
		Name:      "failures_total",
		Help:      "Number of failed remote mirror attempts.",
	})
)

func init() {
	prometheus.MustRegister(syncCycles, cycleDuration, inFlightGauge, lastGenuineGauge, readFailures, mirrorFailures)
}

// RecordCycle records one finished cycle with its outcome and duration.
func RecordCycle(outcome string, elapsed time.Duration) {
	syncCycles.WithLabelValues(outcome).Inc()
	cycleDuration.Observe(elapsed.Seconds())
}

// SetInFlight updates the in-flight gauge.
func SetInFlight(active bool) {
	if active {
		inFlightGauge.Set(1)
	} else {
		inFlightGauge.Set(0)
	}
}

// RecordGenuineSync updates the genuine snapshot watermark.
func RecordGenuineSync(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastGenuineGauge.Set(float64(ts.Unix()))
}

// RecordReadFailure counts one failed provider read.
func RecordReadFailure(origin string) {
	readFailures.WithLabelValues(origin).Inc()
}

// RecordMirrorFailure counts one failed mirror attempt.
func RecordMirrorFailure() {
	mirrorFailures.Inc()
}
