// Package pdf renders payment receipts with maroto. Invoices themselves go
// through the fixed-geometry renderer in internal/render.
package pdf

import (
	"context"
	"errors"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	companydomain "github.com/smallbiznis/folio/internal/company/domain"
	"github.com/smallbiznis/folio/internal/invoice/calc"
	invoicedomain "github.com/smallbiznis/folio/internal/invoice/domain"
	"github.com/smallbiznis/folio/internal/money"
	"go.uber.org/zap"
)

var ErrNotPaid = errors.New("receipt_requires_paid_invoice")

const dateLayout = "2006-01-02"

// ReceiptData is the printable content of a receipt. Amounts are formatted
// from calculator output.
type ReceiptData struct {
	OrgName       string
	OrgAddress    string
	OrgEmail      string
	InvoiceNumber string
	IssueDate     string
	DatePaid      string

	BillToName    string
	BillToAddress string
	BillToEmail   string

	Items []ReceiptItem

	Subtotal string
	Tax      string
	Total    string
}

type ReceiptItem struct {
	Description string
	Qty         string
	UnitPrice   string
	Amount      string
}

// NewReceiptData prepares a receipt for a paid invoice.
func NewReceiptData(inv invoicedomain.Invoice, company companydomain.Company) (ReceiptData, error) {
	if inv.Status != invoicedomain.InvoiceStatusPaid || inv.PaidAt == nil {
		return ReceiptData{}, ErrNotPaid
	}
	totals := calc.ComputeInvoiceTotals(inv)
	cur := totals.Currency

	data := ReceiptData{
		OrgName:       company.DisplayName(),
		OrgAddress:    strings.Join(company.Address.Lines(), ", "),
		OrgEmail:      company.Email,
		InvoiceNumber: inv.Number,
		IssueDate:     inv.IssueDate.Format(dateLayout),
		DatePaid:      inv.PaidAt.UTC().Format(dateLayout),
		BillToName:    inv.Client.Name,
		BillToAddress: strings.Join(inv.Client.AddressLines(), ", "),
		BillToEmail:   inv.Client.Email,
		Subtotal:      money.Format(totals.Subtotal, cur),
		Tax:           money.Format(totals.TaxAmount, cur),
		Total:         money.Format(totals.Total, cur),
	}
	for _, line := range totals.Lines {
		data.Items = append(data.Items, ReceiptItem{
			Description: line.Item.Description,
			Qty:         money.FormatQuantity(line.Item.Quantity),
			UnitPrice:   money.Format(line.Item.UnitPrice, cur),
			Amount:      money.Format(line.Total, cur),
		})
	}
	return data, nil
}

type ReceiptProvider struct {
	log *zap.Logger
}

func New(log *zap.Logger) *ReceiptProvider {
	return &ReceiptProvider{log: log.Named("providers.pdf")}
}

// GenerateReceipt returns the PDF bytes of a payment receipt.
func (p *ReceiptProvider) GenerateReceipt(ctx context.Context, inv invoicedomain.Invoice, company companydomain.Company) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	receipt, err := NewReceiptData(inv, company)
	if err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(12, "Receipt", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Invoice number: "+receipt.InvoiceNumber, props.Text{Top: 0}),
			text.New("Date of issue: "+receipt.IssueDate, props.Text{Top: 4}),
			text.New("Date paid: "+receipt.DatePaid, props.Text{Top: 8}),
		),
		col.New(6),
	)

	m.AddRow(30,
		col.New(6).Add(
			text.New(receipt.OrgName, props.Text{Style: fontstyle.Bold}),
			text.New(receipt.OrgAddress, props.Text{Top: 5}),
			text.New(receipt.OrgEmail, props.Text{Top: 10}),
		),
		col.New(6).Add(
			text.New("Bill to", props.Text{Style: fontstyle.Bold}),
			text.New(receipt.BillToName, props.Text{Top: 5}),
			text.New(receipt.BillToAddress, props.Text{Top: 10}),
			text.New(receipt.BillToEmail, props.Text{Top: 15}),
		),
	)

	m.AddRow(15,
		text.NewCol(12, receipt.Total+" paid on "+receipt.DatePaid, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   5,
		}),
	)

	m.AddRow(10,
		text.NewCol(6, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Unit price", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	for _, item := range receipt.Items {
		m.AddRow(8,
			text.NewCol(6, item.Description, props.Text{Size: 9}),
			text.NewCol(2, item.Qty, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.UnitPrice, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "Subtotal", props.Text{Size: 9}),
		text.NewCol(2, receipt.Subtotal, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "Tax", props.Text{Size: 9}),
		text.NewCol(2, receipt.Tax, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "Total paid", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, receipt.Total, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	p.log.Debug("receipt generated", zap.String("invoice_id", inv.ID))
	return doc.GetBytes(), nil
}
