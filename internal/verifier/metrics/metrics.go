package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for public verification.
type Metrics struct {
	Verifications *prometheus.CounterVec
}

// New creates a new Metrics instance with all verifier metrics registered.
func New() *Metrics {
	return &Metrics{
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustplane_verifications_total",
			Help: "Public verification runs by outcome",
		}, []string{"outcome"}),
	}
}

// IncVerification records a verification outcome.
func (m *Metrics) IncVerification(outcome string) {
	if m != nil {
		m.Verifications.WithLabelValues(outcome).Inc()
	}
}
