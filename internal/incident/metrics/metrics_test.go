package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementVersionsWritten("create")
		m.IncrementTxRetry("update", "version_conflict")
		m.ObserveTxLatency("create", time.Millisecond)
		m.IncrementLateNotifications()
		m.IncrementIncidentsDeleted()
		m.IncrementVerification("verified")
		m.IncrementProofCache("hit")
	})
}

func TestCountersIncrement(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.IncrementVersionsWritten("update")
	m.IncrementVersionsWritten("update")
	m.IncrementVerification("unknown")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.VersionsWritten.WithLabelValues("update")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VerificationLookups.WithLabelValues("unknown")))
}
