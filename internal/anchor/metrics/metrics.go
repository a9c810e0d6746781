package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the anchoring module.
type Metrics struct {
	RootsBuilt         *prometheus.CounterVec
	CertificatesIssued prometheus.Counter
	CertificateWait    prometheus.Histogram
	PublishAttempts    prometheus.Counter
	PublishOutcomes    *prometheus.CounterVec
}

// New creates a new Metrics instance with all anchoring metrics registered.
func New() *Metrics {
	return &Metrics{
		RootsBuilt: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustplane_roots_built_total",
			Help: "Epoch Merkle roots built, by domain",
		}, []string{"domain"}),

		CertificatesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustplane_certificates_issued_total",
			Help: "Threshold certificates issued",
		}),

		CertificateWait: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "trustplane_certificate_wait_seconds",
			Help:    "Time spent collecting certificate signatures",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 120, 300},
		}),

		PublishAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustplane_publish_attempts_total",
			Help: "Settlement publish attempts, including retries",
		}),

		PublishOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustplane_publish_outcomes_total",
			Help: "Anchor publications by outcome",
		}, []string{"outcome"}),
	}
}

// IncRootBuilt records a built root.
func (m *Metrics) IncRootBuilt(domain string) {
	if m != nil {
		m.RootsBuilt.WithLabelValues(domain).Inc()
	}
}

// IncCertificateIssued records an issued certificate.
func (m *Metrics) IncCertificateIssued() {
	if m != nil {
		m.CertificatesIssued.Inc()
	}
}

// ObserveCertificateWait records signature collection time.
func (m *Metrics) ObserveCertificateWait(d time.Duration) {
	if m != nil {
		m.CertificateWait.Observe(d.Seconds())
	}
}

// IncPublishAttempt records one settlement submission.
func (m *Metrics) IncPublishAttempt() {
	if m != nil {
		m.PublishAttempts.Inc()
	}
}

// IncPublishOutcome records a publication outcome.
func (m *Metrics) IncPublishOutcome(outcome string) {
	if m != nil {
		m.PublishOutcomes.WithLabelValues(outcome).Inc()
	}
}
