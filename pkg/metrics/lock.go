package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Latency of the batch lock HTTP handler
	LockLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "caption_lock_latency_seconds",
		Help:    "Latency of the assignment lock handler",
		Buckets: prometheus.DefBuckets,
	})

	// Total lock requests by outcome
	LockRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "caption_lock_requests_total",
		Help: "Total assignment lock requests",
	}, []string{"outcome"})
)

func Init() {
	prometheus.MustRegister(
		LockLatency,
		LockRequests,
	)
}
