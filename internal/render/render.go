package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"
	companydomain "github.com/smallbiznis/folio/internal/company/domain"
	"github.com/smallbiznis/folio/internal/config"
	invoicedomain "github.com/smallbiznis/folio/internal/invoice/domain"
	"github.com/smallbiznis/folio/internal/observability/metrics"
	"github.com/smallbiznis/folio/internal/observability/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrEmptyBatch = errors.New("render_empty_batch")

// Core font, never embedded.
const fontFamily = "Helvetica"

type Params struct {
	fx.In

	Defaults config.DocumentDefaultsSource
	Metrics  *metrics.Metrics `optional:"true"`
	Log      *zap.Logger
}

type Renderer struct {
	defaults config.DocumentDefaultsSource
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func New(p Params) *Renderer {
	return &Renderer{
		defaults: p.Defaults,
		metrics:  p.Metrics,
		log:      p.Log.Named("render"),
	}
}

// Render produces a single-invoice PDF.
func (r *Renderer) Render(ctx context.Context, inv invoicedomain.Invoice, company companydomain.Company) ([]byte, error) {
	return r.RenderBatch(ctx, []invoicedomain.Invoice{inv}, company)
}

// RenderBatch produces one PDF holding every invoice, each starting on a new
// page. The output is byte-identical for identical input: the creation and
// modification dates are the first invoice's issue date and the catalog is
// written sorted.
func (r *Renderer) RenderBatch(ctx context.Context, invoices []invoicedomain.Invoice, company companydomain.Company) (out []byte, err error) {
	if len(invoices) == 0 {
		return nil, ErrEmptyBatch
	}
	ctx, span := tracing.Start(ctx, "render.batch", attribute.Int("invoices", len(invoices)))
	defer func() { tracing.End(span, err) }()

	start := time.Now()
	defaults := r.defaults.Get()

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: PageWidth, Ht: PageHeight},
	})
	pdf.SetMargins(Margin, Margin, Margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCompression(defaults.PDFCompression)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(invoices[0].IssueDate.UTC())
	pdf.SetModificationDate(invoices[0].IssueDate.UTC())
	pdf.SetCreator("folio", false)
	pdf.SetAuthor(company.DisplayName(), true)
	if len(invoices) == 1 {
		pdf.SetTitle("Invoice "+invoices[0].Number, true)
	} else {
		pdf.SetTitle(fmt.Sprintf("Invoices (%d)", len(invoices)), true)
	}
	pdf.SetLineWidth(0.5)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pages := 0
	for _, inv := range invoices {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, page := range Layout(NewDocument(inv, company, defaults.FooterText)) {
			draw(pdf, tr, page)
			pages++
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}

	r.metrics.ObserveRender(pages, time.Since(start))
	r.log.Debug("rendered invoices",
		zap.Int("invoices", len(invoices)),
		zap.Int("pages", pages),
		zap.Int("bytes", buf.Len()),
	)
	return buf.Bytes(), nil
}

func draw(pdf *gofpdf.Fpdf, tr func(string) string, page Page) {
	pdf.AddPage()
	for _, op := range page.Ops {
		switch op.Kind {
		case OpLine:
			pdf.Line(op.X, op.Y, op.X2, op.Y2)
		case OpText:
			pdf.SetFont(fontFamily, op.Style, op.Size)
			txt := tr(op.Text)
			x := op.X
			if op.Align == AlignRight {
				x -= pdf.GetStringWidth(txt)
			}
			pdf.Text(x, op.Y, txt)
		}
	}
}
