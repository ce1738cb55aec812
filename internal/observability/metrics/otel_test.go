package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func TestNewMeterProviderDisabled(t *testing.T) {
	provider, err := NewMeterProvider(nil, OTLPConfig{}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, provider)

	events, err := NewInvoiceEvents(provider)
	require.NoError(t, err)
	events.Created(context.Background(), "EUR")
}

func TestNewMeterProviderRejectsUnknownProtocol(t *testing.T) {
	_, err := NewMeterProvider(nil, OTLPConfig{Enabled: true, ExporterProtocol: "udp"}, zap.NewNop())
	assert.ErrorContains(t, err, "unsupported OTLP protocol")
}

func TestInvoiceEventsRecord(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	events, err := NewInvoiceEvents(provider)
	require.NoError(t, err)

	ctx := context.Background()
	events.Created(ctx, "EUR")
	events.Created(ctx, "EUR")
	events.Transitioned(ctx, "draft", "sent")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	sums := map[string]metricdata.Sum[int64]{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		sum, ok := m.Data.(metricdata.Sum[int64])
		require.True(t, ok, m.Name)
		sums[m.Name] = sum
	}

	created := sums["folio.invoice.created"]
	require.Len(t, created.DataPoints, 1)
	assert.Equal(t, int64(2), created.DataPoints[0].Value)
	currency, _ := created.DataPoints[0].Attributes.Value(attribute.Key("currency"))
	assert.Equal(t, "EUR", currency.AsString())

	transitions := sums["folio.invoice.transitions"]
	require.Len(t, transitions.DataPoints, 1)
	assert.Equal(t, int64(1), transitions.DataPoints[0].Value)
}

func TestNilInvoiceEvents(t *testing.T) {
	var events *InvoiceEvents
	events.Created(context.Background(), "EUR")
	events.Transitioned(context.Background(), "draft", "sent")
}
