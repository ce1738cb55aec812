package render

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	companydomain "github.com/smallbiznis/folio/internal/company/domain"
	invoicedomain "github.com/smallbiznis/folio/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCompany() companydomain.Company {
	return companydomain.Company{
		ID:      "1",
		Name:    "Nordlys AS",
		Email:   "billing@nordlys.test",
		Address: companydomain.Address{Street: "Storgata 1", City: "Oslo", PostalCode: "0155", Country: "NO"},
		Bank:    companydomain.BankDetails{AccountHolder: "Nordlys AS", IBAN: "NO9386011117947"},
	}
}

func sampleInvoice(lines int) invoicedomain.Invoice {
	issue := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	inv := invoicedomain.Invoice{
		ID:              "10",
		Number:          "2026-001",
		IssueDate:       issue,
		DueDate:         issue.AddDate(0, 0, 30),
		PaymentTermDays: 30,
		Client:          invoicedomain.Client{Name: "Acme", Email: "ap@acme.test"},
		Status:          invoicedomain.InvoiceStatusDraft,
		Currency:        "EUR",
		TaxRate:         decimal.NewFromInt(25),
	}
	for i := 0; i < lines; i++ {
		inv.LineItems = append(inv.LineItems, invoicedomain.LineItem{
			ID:          fmt.Sprintf("l%d", i),
			Description: "Consulting",
			Quantity:    decimal.NewFromInt(10),
			Unit:        "hour",
			UnitPrice:   decimal.NewFromInt(1000),
			TaxRate:     decimal.NewFromInt(25),
		})
	}
	return inv
}

func texts(p Page) []string {
	out := make([]string, 0, len(p.Ops))
	for _, op := range p.Ops {
		if op.Kind == OpText {
			out = append(out, op.Text)
		}
	}
	return out
}

func TestLayoutSinglePage(t *testing.T) {
	pages := Layout(NewDocument(sampleInvoice(1), sampleCompany(), ""))
	require.Len(t, pages, 1)

	first := pages[0].Ops[0]
	assert.Equal(t, "INVOICE", first.Text)
	assert.Equal(t, ColDescription, first.X)
	assert.Equal(t, Margin+10, first.Y)

	all := texts(pages[0])
	assert.Contains(t, all, "EUR 12,500.00")
	assert.Contains(t, all, "12,500.00")
	assert.Contains(t, all, "Page 1 of 1")
	assert.Contains(t, all, "IBAN: NO9386011117947")
	for _, s := range all {
		assert.NotContains(t, s, "Tax 25%", "invoice rate is not charged on top of line tax")
	}
}

func TestLayoutIsDeterministic(t *testing.T) {
	doc := NewDocument(sampleInvoice(3), sampleCompany(), "Thank you")
	assert.Equal(t, Layout(doc), Layout(doc))
}

func TestLayoutPaginatesLongTables(t *testing.T) {
	pages := Layout(NewDocument(sampleInvoice(80), sampleCompany(), "Thank you"))
	require.GreaterOrEqual(t, len(pages), 3)

	rows := 0
	for i, p := range pages {
		all := texts(p)
		assert.Contains(t, all, fmt.Sprintf("Page %d of %d", i+1, len(pages)))
		assert.Contains(t, all, "Thank you")
		if i > 0 {
			assert.Contains(t, all, "INVOICE 2026-001 (continued)")
		}
		for _, op := range p.Ops {
			if op.Kind == OpText && op.Y != FooterY {
				assert.LessOrEqual(t, op.Y, ContentBottom, "page %d op %q", i+1, op.Text)
			}
			if op.Kind == OpText && op.Text == "Consulting" {
				rows++
			}
		}
	}
	assert.Equal(t, 80, rows)

	assert.Contains(t, texts(pages[1]), "Description", "table header repeats")
	last := texts(pages[len(pages)-1])
	assert.Contains(t, last, "Total")
	assert.Contains(t, last, "EUR 1,000,000.00")
}

func TestLayoutInvoiceTaxWhenLinesUntaxed(t *testing.T) {
	inv := sampleInvoice(1)
	inv.LineItems[0].TaxRate = decimal.Zero

	all := texts(Layout(NewDocument(inv, sampleCompany(), ""))[0])
	assert.Contains(t, all, "Tax 25%")
	assert.Contains(t, all, "EUR 2,500.00")
	assert.Contains(t, all, "EUR 12,500.00")
}

func TestLayoutWrapsNotes(t *testing.T) {
	inv := sampleInvoice(1)
	inv.Notes = strings.Repeat("word ", 60)

	all := texts(Layout(NewDocument(inv, sampleCompany(), ""))[0])
	assert.Contains(t, all, "Notes")
	for _, s := range all {
		assert.LessOrEqual(t, len([]rune(s)), notesRunes)
	}
}

func TestWrap(t *testing.T) {
	assert.Nil(t, wrap("   ", 10))
	assert.Equal(t, []string{"one two", "three"}, wrap("one two three", 8))
	assert.Equal(t, []string{"first", "second"}, wrap("first\nsecond", 20))
	assert.Equal(t, []string{"abcde", "fgh"}, wrap("abcdefgh", 5))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate(" short ", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
