package assignment

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	LocksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "caption_assignments_locked_total",
			Help: "Assignments successfully locked.",
		},
	)

	LockConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "caption_lock_conflicts_total",
			Help: "Batch lock attempts rolled back on conflict.",
		},
	)

	ExpiredSweptTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "caption_assignments_expired_total",
			Help: "Assignments deactivated by the expiry sweep.",
		},
	)
)

func init() {
	prometheus.MustRegister(LocksTotal, LockConflictsTotal, ExpiredSweptTotal)
}
