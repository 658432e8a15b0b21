package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the incident registry.
type Metrics struct {
	// Versions written by operation ("create", "update")
	VersionsWritten *prometheus.CounterVec

	// Transaction retries by operation and reason ("version_conflict", "token_collision")
	TxRetries *prometheus.CounterVec

	// Duration of chain transactions including retries
	TxLatency *prometheus.HistogramVec

	// Versions recorded with an authority notification after the deadline
	LateNotifications prometheus.Counter

	// Incidents hard deleted
	IncidentsDeleted prometheus.Counter

	// Public verification lookups by result ("verified", "unknown", "tampered", "error")
	VerificationLookups *prometheus.CounterVec

	// Proof cache lookups by outcome ("hit", "miss", "error")
	ProofCache *prometheus.CounterVec
}

// New registers the incident metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the incident metrics on reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		VersionsWritten: f.NewCounterVec(prometheus.CounterOpts{
			Name: "breachledger_incident_versions_written_total",
			Help: "Total incident versions written by operation",
		}, []string{"operation"}),

		TxRetries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "breachledger_incident_tx_retries_total",
			Help: "Total transaction retries by operation and reason",
		}, []string{"operation", "reason"}),

		TxLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "breachledger_incident_tx_duration_seconds",
			Help:    "Duration of incident chain transactions including retries",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"operation"}),

		LateNotifications: f.NewCounter(prometheus.CounterOpts{
			Name: "breachledger_incident_late_notifications_total",
			Help: "Total versions recording an authority notification after the 72h deadline",
		}),

		IncidentsDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "breachledger_incidents_deleted_total",
			Help: "Total incidents hard deleted",
		}),

		VerificationLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "breachledger_verification_lookups_total",
			Help: "Total public verification lookups by result",
		}, []string{"result"}),

		ProofCache: f.NewCounterVec(prometheus.CounterOpts{
			Name: "breachledger_verification_cache_total",
			Help: "Verification proof cache lookups by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) IncrementVersionsWritten(operation string) {
	if m != nil {
		m.VersionsWritten.WithLabelValues(operation).Inc()
	}
}

func (m *Metrics) IncrementTxRetry(operation, reason string) {
	if m != nil {
		m.TxRetries.WithLabelValues(operation, reason).Inc()
	}
}

func (m *Metrics) ObserveTxLatency(operation string, d time.Duration) {
	if m != nil {
		m.TxLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementLateNotifications() {
	if m != nil {
		m.LateNotifications.Inc()
	}
}

func (m *Metrics) IncrementIncidentsDeleted() {
	if m != nil {
		m.IncidentsDeleted.Inc()
	}
}

func (m *Metrics) IncrementVerification(result string) {
	if m != nil {
		m.VerificationLookups.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncrementProofCache(outcome string) {
	if m != nil {
		m.ProofCache.WithLabelValues(outcome).Inc()
	}
}
