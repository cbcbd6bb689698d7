package selection

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SelectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caption_selections_total",
			Help: "Count of selected captions by behavioral segment and selection strategy.",
		},
		[]string{"segment", "strategy"},
	)

	PoolExhaustedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "caption_pool_exhausted_total",
			Help: "Selections whose eligible pool was empty after filtering.",
		},
	)
)

func init() {
	prometheus.MustRegister(SelectionsTotal, PoolExhaustedTotal)
}
