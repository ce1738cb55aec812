// Package calc derives money-correct totals and invoice numbers. Everything
// here is pure: no I/O, no clock, deterministic for a given input.
package calc

import (
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/folio/internal/invoice/domain"
	"github.com/smallbiznis/folio/internal/money"
)

var one = decimal.NewFromInt(1)

// Line is the computed view of one line item.
type Line struct {
	Item  invoicedomain.LineItem `json:"item"`
	Net   decimal.Decimal        `json:"net"`   // quantity * unit price, rounded
	Tax   decimal.Decimal        `json:"tax"`   // Total - Net
	Total decimal.Decimal        `json:"total"` // quantity * unit price * (1 + rate/100), rounded
}

// Totals is the only source of invoice amounts. Projections and the renderer
// read it and never recompute.
type Totals struct {
	Currency string `json:"currency"`
	Lines    []Line `json:"lines"`

	Net      decimal.Decimal `json:"net"`      // Σ line net
	LineTax  decimal.Decimal `json:"lineTax"`  // Σ tax folded into line totals
	Subtotal decimal.Decimal `json:"subtotal"` // Σ line totals

	// TaxRateApplied is the invoice-level rate actually charged on top of the
	// subtotal. It is zero whenever any line carries its own rate.
	TaxRateApplied decimal.Decimal `json:"taxRateApplied"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
	Total          decimal.Decimal `json:"total"`
}

// LineItemTotal returns round(quantity * unitPrice * (1 + taxRate/100)).
func LineItemTotal(item invoicedomain.LineItem, currency string) decimal.Decimal {
	gross := item.Quantity.Mul(item.UnitPrice).Mul(one.Add(item.TaxRate.Div(decimal.NewFromInt(100))))
	return money.Round(gross, currency)
}

// LineItemNet returns round(quantity * unitPrice).
func LineItemNet(item invoicedomain.LineItem, currency string) decimal.Decimal {
	return money.Round(item.Quantity.Mul(item.UnitPrice), currency)
}

// HasLineTax reports whether any line item carries its own tax rate.
func HasLineTax(items []invoicedomain.LineItem) bool {
	for _, item := range items {
		if item.TaxRate.IsPositive() {
			return true
		}
	}
	return false
}

// ComputeInvoiceTotals derives subtotal, tax and total.
//
// Tax is applied once. Line totals already include their own rate, so the
// invoice-level rate is only charged (on the subtotal) when no line has a
// rate of its own.
func ComputeInvoiceTotals(inv invoicedomain.Invoice) Totals {
	currency := inv.Currency
	if currency == "" {
		currency = money.DefaultCurrency
	}

	t := Totals{
		Currency:       currency,
		Lines:          make([]Line, 0, len(inv.LineItems)),
		Net:            decimal.Zero,
		LineTax:        decimal.Zero,
		Subtotal:       decimal.Zero,
		TaxRateApplied: decimal.Zero,
		TaxAmount:      decimal.Zero,
	}

	for _, item := range inv.LineItems {
		net := LineItemNet(item, currency)
		total := LineItemTotal(item, currency)
		t.Lines = append(t.Lines, Line{
			Item:  item,
			Net:   net,
			Tax:   total.Sub(net),
			Total: total,
		})
		t.Net = t.Net.Add(net)
		t.Subtotal = t.Subtotal.Add(total)
	}
	t.LineTax = t.Subtotal.Sub(t.Net)

	if !HasLineTax(inv.LineItems) && inv.TaxRate.IsPositive() {
		t.TaxRateApplied = inv.TaxRate
		t.TaxAmount = money.Round(money.Percent(t.Subtotal, inv.TaxRate), currency)
	}
	t.Total = t.Subtotal.Add(t.TaxAmount)

	return t
}
