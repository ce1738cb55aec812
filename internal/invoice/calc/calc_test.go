package calc

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/folio/internal/invoice/domain"
	"github.com/smallbiznis/folio/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func item(qty, price, rate string) invoicedomain.LineItem {
	return invoicedomain.LineItem{Description: "Work", Quantity: d(qty), UnitPrice: d(price), TaxRate: d(rate)}
}

func TestLineItemTotal(t *testing.T) {
	tests := []struct {
		name string
		item invoicedomain.LineItem
		want string
	}{
		{"no tax", item("3", "19.99", "0"), "59.97"},
		{"with tax", item("10", "1000", "25"), "12500"},
		{"fractional qty", item("1.5", "80", "19"), "142.8"},
		{"half even down", item("1", "0.125", "0"), "0.12"},
		{"half even up", item("1", "0.135", "0"), "0.14"},
		{"reduced rate", item("7", "3.33", "7"), "24.94"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LineItemTotal(tt.item, "EUR")
			assert.True(t, got.Equal(d(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestLineItemTotalMatchesRoundingPolicy(t *testing.T) {
	qtys := []string{"0.5", "1", "2.25", "3", "13", "99.99"}
	prices := []string{"0.01", "0.333", "9.995", "120", "1999.99"}
	rates := []string{"0", "5.5", "7", "19", "25"}

	for _, q := range qtys {
		for _, p := range prices {
			for _, r := range rates {
				it := item(q, p, r)
				raw := d(q).Mul(d(p)).Mul(decimal.NewFromInt(1).Add(d(r).Div(decimal.NewFromInt(100))))
				want := money.Round(raw, "EUR")
				assert.True(t, LineItemTotal(it, "EUR").Equal(want), "qty=%s price=%s rate=%s", q, p, r)
			}
		}
	}
}

func TestComputeInvoiceTotals_TaxAppliedOnce(t *testing.T) {
	inv := invoicedomain.Invoice{
		Currency:  "EUR",
		TaxRate:   d("25"),
		LineItems: []invoicedomain.LineItem{{Description: "Consulting", Quantity: d("10"), Unit: "hour", UnitPrice: d("1000"), TaxRate: d("25")}},
	}

	totals := ComputeInvoiceTotals(inv)

	assert.True(t, totals.Subtotal.Equal(d("12500")), "subtotal %s", totals.Subtotal)
	assert.True(t, totals.TaxAmount.IsZero(), "invoice tax must not stack on line tax")
	assert.True(t, totals.TaxRateApplied.IsZero())
	assert.True(t, totals.Total.Equal(d("12500")), "total %s", totals.Total)
	assert.False(t, totals.Total.Equal(d("15625")))
	assert.True(t, totals.Net.Equal(d("10000")))
	assert.True(t, totals.LineTax.Equal(d("2500")))
}

func TestComputeInvoiceTotals_InvoiceRateWhenLinesUntaxed(t *testing.T) {
	inv := invoicedomain.Invoice{
		Currency: "EUR",
		TaxRate:  d("19"),
		LineItems: []invoicedomain.LineItem{
			item("8", "120", "0"),
			item("2", "100", "0"),
			item("1", "500", "0"),
		},
	}

	totals := ComputeInvoiceTotals(inv)

	assert.True(t, totals.Subtotal.Equal(d("1660")))
	assert.True(t, totals.TaxRateApplied.Equal(d("19")))
	assert.True(t, totals.TaxAmount.Equal(d("315.4")))
	assert.True(t, totals.Total.Equal(d("1975.4")))
	require.Len(t, totals.Lines, 3)
}

func TestComputeInvoiceTotals_SubtotalIsSumOfLines(t *testing.T) {
	inv := invoicedomain.Invoice{
		Currency: "USD",
		LineItems: []invoicedomain.LineItem{
			item("1", "0.105", "0"),
			item("1", "0.105", "0"),
			item("3", "33.333", "7"),
		},
	}

	totals := ComputeInvoiceTotals(inv)

	sum := decimal.Zero
	for _, line := range totals.Lines {
		sum = sum.Add(line.Total)
		assert.True(t, line.Net.Add(line.Tax).Equal(line.Total))
	}
	assert.True(t, totals.Subtotal.Equal(sum))
	assert.True(t, totals.Total.Equal(totals.Subtotal.Add(totals.TaxAmount)))
}

func TestComputeInvoiceTotals_Empty(t *testing.T) {
	totals := ComputeInvoiceTotals(invoicedomain.Invoice{TaxRate: d("20")})

	assert.Equal(t, money.DefaultCurrency, totals.Currency)
	assert.True(t, totals.Total.IsZero())
	assert.Empty(t, totals.Lines)
}

func TestDueDateInvariant(t *testing.T) {
	issue := time.Date(2026, time.December, 20, 0, 0, 0, 0, time.UTC)
	for _, terms := range []int{0, 1, 14, 30, 45} {
		due := invoicedomain.DueDateFor(issue, terms)
		assert.Equal(t, time.Duration(terms)*24*time.Hour, due.Sub(issue))
	}
}
