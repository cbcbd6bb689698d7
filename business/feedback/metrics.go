package feedback

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RunsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "feedback_runs_total",
			Help: "Completed feedback update runs.",
		},
	)

	RunsSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "feedback_runs_skipped_total",
			Help: "Ticks skipped because a run was still in flight.",
		},
	)

	OutcomesProcessedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "feedback_outcomes_processed_total",
			Help: "Delivery outcomes folded into the bandit ledger.",
		},
	)
)

func init() {
	prometheus.MustRegister(RunsTotal, RunsSkippedTotal, OutcomesProcessedTotal)
}
