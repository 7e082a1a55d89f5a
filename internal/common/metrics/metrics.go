// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_submissions_total",
			Help: "Application submissions by outcome",
		},
		[]string{"outcome"},
	)

	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_decisions_total",
			Help: "Status transitions by target state and outcome",
		},
		[]string{"state", "outcome"},
	)

	FanoutNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanout_notifications_total",
			Help: "Notifications created, skipped or failed per fanout run",
		},
		[]string{"result"},
	)

	FanoutDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "fanout_duration_seconds",
			Help: "Duration of a full notification fanout",
		},
	)
)
