package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the governance module.
type Metrics struct {
	Selections     *prometheus.CounterVec
	PoolCandidates prometheus.Gauge
}

// New creates a new Metrics instance with all governance metrics registered.
func New() *Metrics {
	return &Metrics{
		Selections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustplane_chamber_selections_total",
			Help: "Chamber selection attempts by outcome",
		}, []string{"outcome"}),

		PoolCandidates: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "trustplane_pool_candidates",
			Help: "Candidate count of the most recent eligibility snapshot",
		}),
	}
}

// IncSelection records a selection outcome.
func (m *Metrics) IncSelection(outcome string) {
	if m != nil {
		m.Selections.WithLabelValues(outcome).Inc()
	}
}

// SetPoolCandidates records the size of the latest snapshot.
func (m *Metrics) SetPoolCandidates(n int) {
	if m != nil {
		m.PoolCandidates.Set(float64(n))
	}
}
