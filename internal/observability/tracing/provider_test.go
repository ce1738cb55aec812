package tracing

import (
	"context"
	"testing"

	"github.com/smallbiznis/folio/internal/companyctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func TestNewProviderDisabled(t *testing.T) {
	tp, err := NewProvider(nil, Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, tp)

	_, span := tp.Tracer("test").Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsSampled())
	span.End()
}

func TestNewProviderRejectsUnknownProtocol(t *testing.T) {
	_, err := NewProvider(nil, Config{Enabled: true, ExporterProtocol: "udp"}, zap.NewNop())
	assert.ErrorContains(t, err, "unsupported otlp protocol")
}

func TestContextSpanProcessor(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(&contextSpanProcessor{}),
		sdktrace.WithSpanProcessor(rec),
	)

	ctx := companyctx.WithRequestID(context.Background(), "req-1")
	ctx = companyctx.WithCompanyID(ctx, "1843021011205402624")
	_, span := tp.Tracer("test").Start(ctx, "invoice.create")
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Contains(t, ended[0].Attributes(), attribute.String("request_id", "req-1"))
	assert.Contains(t, ended[0].Attributes(), attribute.String("company_id", "1843021011205402624"))
}

func TestClampRatio(t *testing.T) {
	assert.Equal(t, 0.0, clampRatio(-1))
	assert.Equal(t, 0.25, clampRatio(0.25))
	assert.Equal(t, 1.0, clampRatio(3))
}
