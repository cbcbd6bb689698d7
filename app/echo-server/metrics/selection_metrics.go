package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	SelectionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "selection_handler_latency_seconds",
		Help:    "Latency of selection endpoint",
		Buckets: prometheus.DefBuckets,
	})

	SelectionTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "selection_handler_total",
		Help: "Total selections served",
	})

	PartialSelections = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "selection_partial_results_total",
		Help: "How many selections returned fewer captions than requested",
	})
)

func Init() {
	prometheus.MustRegister(SelectionDuration, SelectionTotal, PartialSelections)
}
