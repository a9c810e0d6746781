package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the trust module.
type Metrics struct {
	// Guard verdicts by disposition
	Verdicts *prometheus.CounterVec

	// Rejected events by reason (evidence_invalid, not_found, conflict)
	EventsRejected *prometheus.CounterVec

	// Quorum signature submissions and finalizations
	QuorumSignatures prometheus.Counter
	QuorumOutcomes   *prometheus.CounterVec

	// Commit conflicts that forced recomputation
	CommitConflicts prometheus.Counter

	// Full apply-event latency
	ApplyLatency prometheus.Histogram
}

// New creates a new Metrics instance with all trust module metrics registered.
func New() *Metrics {
	return &Metrics{
		Verdicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustplane_guard_verdicts_total",
			Help: "Delta guard verdicts by disposition",
		}, []string{"verdict"}),

		EventsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustplane_trust_events_rejected_total",
			Help: "Trust events rejected before evaluation, by reason",
		}, []string{"reason"}),

		QuorumSignatures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustplane_quorum_signatures_total",
			Help: "Accepted quorum revalidation signatures",
		}),

		QuorumOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustplane_quorum_finalizations_total",
			Help: "Quorum finalization outcomes",
		}, []string{"verdict"}),

		CommitConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustplane_trust_commit_conflicts_total",
			Help: "Optimistic commits lost to a concurrent writer",
		}),

		ApplyLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "trustplane_trust_apply_duration_seconds",
			Help:    "Duration of full trust event processing",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
	}
}

// IncVerdict records a guard verdict.
func (m *Metrics) IncVerdict(verdict string) {
	if m != nil {
		m.Verdicts.WithLabelValues(verdict).Inc()
	}
}

// IncRejected records a rejected trust event.
func (m *Metrics) IncRejected(reason string) {
	if m != nil {
		m.EventsRejected.WithLabelValues(reason).Inc()
	}
}

// IncQuorumSignature records an accepted revalidation signature.
func (m *Metrics) IncQuorumSignature() {
	if m != nil {
		m.QuorumSignatures.Inc()
	}
}

// IncQuorumOutcome records a finalization outcome.
func (m *Metrics) IncQuorumOutcome(verdict string) {
	if m != nil {
		m.QuorumOutcomes.WithLabelValues(verdict).Inc()
	}
}

// IncCommitConflict records a lost optimistic commit.
func (m *Metrics) IncCommitConflict() {
	if m != nil {
		m.CommitConflicts.Inc()
	}
}

// ObserveApplyLatency records end-to-end trust event processing time.
func (m *Metrics) ObserveApplyLatency(d time.Duration) {
	if m != nil {
		m.ApplyLatency.Observe(d.Seconds())
	}
}
