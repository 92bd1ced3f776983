package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the verification pipeline.
// Each Metrics owns its registry so tests can build servers freely
// without duplicate-registration panics.
type Metrics struct {
	Registry *prometheus.Registry

	Verifications  *prometheus.CounterVec
	RewardPoints   prometheus.Counter
	ScorerFailures prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cleanquest_verifications_total",
			Help: "Completed verifications by terminal state.",
		}, []string{"state"}),
		RewardPoints: factory.NewCounter(prometheus.CounterOpts{
			Name: "cleanquest_reward_points_total",
			Help: "Total reward points credited to travelers.",
		}),
		ScorerFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "cleanquest_scorer_failures_total",
			Help: "Cleanliness scorer calls that failed or timed out.",
		}),
	}
}
