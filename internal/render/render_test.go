package render

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/folio/internal/config"
	invoicedomain "github.com/smallbiznis/folio/internal/invoice/domain"
	"github.com/smallbiznis/folio/internal/observability/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRenderer(t *testing.T, compress bool) *Renderer {
	t.Helper()
	defaults := config.DefaultDocumentDefaults()
	defaults.PDFCompression = compress
	m, err := metrics.New(metrics.NewRegistry())
	require.NoError(t, err)
	return New(Params{Defaults: config.StaticDefaults(defaults), Metrics: m, Log: zap.NewNop()})
}

func pageCount(pdf []byte) int {
	return bytes.Count(pdf, []byte("<</Type /Page\n"))
}

func TestRenderWritesFlippedCoordinates(t *testing.T) {
	r := newRenderer(t, false)
	out, err := r.Render(context.Background(), sampleInvoice(1), sampleCompany())
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Contains(t, string(out), "BT 50.00 782.00 Td (INVOICE) Tj ET")
	assert.Contains(t, string(out), "(EUR 12,500.00)")
	assert.Contains(t, string(out), "/MediaBox [0 0 595.00 842.00]")
	assert.Equal(t, 1, pageCount(out))
}

func TestRenderIsByteIdentical(t *testing.T) {
	r := newRenderer(t, true)
	ctx := context.Background()

	a, err := r.Render(ctx, sampleInvoice(5), sampleCompany())
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)
	b, err := r.Render(ctx, sampleInvoice(5), sampleCompany())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRenderDatesFollowIssueDate(t *testing.T) {
	r := newRenderer(t, true)
	out, err := r.Render(context.Background(), sampleInvoice(1), sampleCompany())
	require.NoError(t, err)

	assert.Contains(t, string(out), "/CreationDate (D:20260301000000)")
	assert.Contains(t, string(out), "/ModDate (D:20260301000000)")
}

func TestRenderBatchStartsEachInvoiceOnNewPage(t *testing.T) {
	r := newRenderer(t, false)
	second := sampleInvoice(80)
	second.Number = "2026-002"

	out, err := r.RenderBatch(context.Background(), []invoicedomain.Invoice{sampleInvoice(1), second}, sampleCompany())
	require.NoError(t, err)

	want := 1 + len(Layout(NewDocument(second, sampleCompany(), "")))
	assert.Equal(t, want, pageCount(out))
}

func TestRenderBatchRejectsEmpty(t *testing.T) {
	r := newRenderer(t, true)
	_, err := r.RenderBatch(context.Background(), nil, sampleCompany())
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestRenderHonorsCancellation(t *testing.T) {
	r := newRenderer(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Render(ctx, sampleInvoice(1), sampleCompany())
	assert.ErrorIs(t, err, context.Canceled)
}
