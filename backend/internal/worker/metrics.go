package worker

import (
	"github.com/itchan-dev/itboard/shared/middleware/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Name:      "submissions_total",
			Help:      "Executed submissions by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	commitAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Name:      "commit_attempts",
			Help:      "Commit attempts needed per accepted submission",
			Buckets:   []float64{1, 2, 3, 4, 5},
		},
	)

	conflictsExhausted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Name:      "submission_conflicts_exhausted_total",
			Help:      "Submissions dropped after exhausting write conflict retries",
		},
	)
)
