package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoveredReadCountsDecodeFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.ObserveRead("invoices", SourceStored)
	m.ObserveRead("invoices", SourceSeedRecovery)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeDecodeFailures.WithLabelValues("invoices")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeReads.WithLabelValues("invoices", SourceStored)))
}

func TestWriteAndRenderObservations(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.ObserveWrite("products", WriteResultStale, time.Millisecond)
	m.ObserveRender(3, 10*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeWrites.WithLabelValues("products", WriteResultStale)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.renderPages))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRead("invoices", SourceStored)
		m.ObserveWrite("invoices", WriteResultOK, time.Second)
		m.ObserveRender(1, time.Second)
		m.ObserveBackup("create", nil)
	})
}

func TestNewRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}
