package mirror

import "github.com/prometheus/client_golang/prometheus"

var (
	deliveredEvents = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "health_engine",
		Subsystem: "mirror_outbox",
		Name:      "events_delivered_total",
		Help:      "Number of snapshot events successfully published to Kafka.",
	})

	failedEvents = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "health_engine",
		Subsystem: "mirror_outbox",
		Name:      "events_failed_total",
		Help:      "Number of snapshot event batches that failed to publish and were left for retry.",
	})

	dispatchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "health_engine",
		Subsystem: "mirror_outbox",
		Name:      "batch_duration_seconds",
		Help:      "Time spent fetching, delivering, and marking outbox batches.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})
)

func init() {
	prometheus.MustRegister(deliveredEvents, failedEvents, dispatchDuration)
}
