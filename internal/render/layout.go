// Package render lays invoices out on fixed A4 geometry and writes them as
// PDF. Layout is pure and works in top-left page coordinates; the gofpdf
// backend owns the flip to PDF's bottom-left origin.
package render

import (
	"fmt"
	"strings"

	companydomain "github.com/smallbiznis/folio/internal/company/domain"
	"github.com/smallbiznis/folio/internal/invoice/calc"
	invoicedomain "github.com/smallbiznis/folio/internal/invoice/domain"
	"github.com/smallbiznis/folio/internal/money"
)

// Page geometry in points.
const (
	PageWidth  = 595.0
	PageHeight = 842.0
	Margin     = 50.0
	RowHeight  = 18.0
	LineHeight = 14.0

	ColDescription = 50.0
	ColQuantity    = 300.0
	ColUnit        = 345.0
	ColUnitPrice   = 395.0
	ColTax         = 455.0
	ColTotalRight  = 545.0

	// ContentBottom is the lowest baseline body content may use; the footer
	// lives below it.
	ContentBottom = PageHeight - Margin - RowHeight
	FooterY       = PageHeight - 30

	headerY          = Margin + 10
	descriptionRunes = 48
	notesRunes       = 90
	dateLayout       = "2006-01-02"
)

type OpKind uint8

const (
	OpText OpKind = iota
	OpLine
)

type Align uint8

const (
	AlignLeft Align = iota
	AlignRight
)

// Op is one drawing instruction. For right-aligned text X is the right edge.
type Op struct {
	Kind  OpKind
	X, Y  float64
	X2    float64
	Y2    float64
	Text  string
	Style string
	Size  float64
	Align Align
}

type Page struct {
	Ops []Op
}

// Document is everything a printed invoice needs. Totals must come from the
// calculator; Layout never recomputes amounts.
type Document struct {
	Invoice invoicedomain.Invoice
	Company companydomain.Company
	Totals  calc.Totals
	Footer  string
}

func NewDocument(inv invoicedomain.Invoice, company companydomain.Company, footer string) Document {
	return Document{
		Invoice: inv,
		Company: company,
		Totals:  calc.ComputeInvoiceTotals(inv),
		Footer:  footer,
	}
}

// Layout paginates doc. Rows that would cross ContentBottom continue on a
// new page under a repeated table header; the totals and payment blocks move
// to a fresh page when they do not fit.
func Layout(doc Document) []Page {
	l := &layout{doc: doc, currency: doc.Totals.Currency}
	if l.currency == "" {
		l.currency = money.DefaultCurrency
	}

	l.newPage()
	l.header()
	l.parties()
	l.table()
	l.totals()
	l.payment()
	l.footers()
	return l.pages
}

type layout struct {
	doc      Document
	currency string
	pages    []Page
	y        float64
}

func (l *layout) newPage() {
	l.pages = append(l.pages, Page{})
	l.y = headerY
}

func (l *layout) continuePage() {
	l.newPage()
	l.text(ColDescription, l.y, fmt.Sprintf("INVOICE %s (continued)", l.doc.Invoice.Number), "B", 12)
	l.y += 2 * RowHeight
}

// ensure starts a continuation page unless h more points fit.
func (l *layout) ensure(h float64) {
	if l.y+h > ContentBottom {
		l.continuePage()
	}
}

func (l *layout) add(op Op) {
	p := &l.pages[len(l.pages)-1]
	p.Ops = append(p.Ops, op)
}

func (l *layout) text(x, y float64, s, style string, size float64) {
	l.add(Op{Kind: OpText, X: x, Y: y, Text: s, Style: style, Size: size})
}

func (l *layout) textRight(x, y float64, s, style string, size float64) {
	l.add(Op{Kind: OpText, X: x, Y: y, Text: s, Style: style, Size: size, Align: AlignRight})
}

func (l *layout) rule(y float64) {
	l.add(Op{Kind: OpLine, X: ColDescription, Y: y, X2: ColTotalRight, Y2: y})
}

func (l *layout) header() {
	inv, company := l.doc.Invoice, l.doc.Company

	l.text(ColDescription, l.y, "INVOICE", "B", 20)
	l.textRight(ColTotalRight, l.y, company.DisplayName(), "B", 12)

	right := l.y + LineHeight
	lines := company.Address.Lines()
	lines = appendNonEmpty(lines, company.Email, company.Phone)
	if company.TaxID != "" {
		lines = append(lines, "Tax ID: "+company.TaxID)
	}
	if company.RegistrationNumber != "" {
		lines = append(lines, "Reg. no: "+company.RegistrationNumber)
	}
	for _, s := range lines {
		l.textRight(ColTotalRight, right, s, "", 9)
		right += LineHeight - 2
	}

	left := l.y + 2*RowHeight
	meta := [][2]string{
		{"Invoice no.", inv.Number},
		{"Issue date", inv.IssueDate.Format(dateLayout)},
		{"Due date", inv.DueDate.Format(dateLayout)},
		{"Terms", fmt.Sprintf("%d days", inv.PaymentTermDays)},
	}
	for _, kv := range meta {
		l.text(ColDescription, left, kv[0], "B", 10)
		l.text(ColDescription+80, left, kv[1], "", 10)
		left += LineHeight
	}

	l.y = max(left, right) + RowHeight
}

func (l *layout) parties() {
	c := l.doc.Invoice.Client

	l.text(ColDescription, l.y, "Bill to", "B", 10)
	l.y += LineHeight
	l.text(ColDescription, l.y, c.Name, "B", 10)
	l.y += LineHeight

	lines := appendNonEmpty(nil, c.ContactName)
	lines = append(lines, c.AddressLines()...)
	lines = appendNonEmpty(lines, c.Email, c.Phone)
	if c.TaxID != "" {
		lines = append(lines, "Tax ID: "+c.TaxID)
	}
	if c.RegistrationNumber != "" {
		lines = append(lines, "Reg. no: "+c.RegistrationNumber)
	}
	for _, s := range lines {
		l.text(ColDescription, l.y, s, "", 10)
		l.y += LineHeight
	}
	l.y += RowHeight
}

func (l *layout) tableHeader() {
	l.text(ColDescription, l.y, "Description", "B", 9)
	l.text(ColQuantity, l.y, "Qty", "B", 9)
	l.text(ColUnit, l.y, "Unit", "B", 9)
	l.text(ColUnitPrice, l.y, "Unit price", "B", 9)
	l.text(ColTax, l.y, "Tax", "B", 9)
	l.textRight(ColTotalRight, l.y, "Total ("+l.currency+")", "B", 9)
	l.rule(l.y + 5)
	l.y += RowHeight
}

func (l *layout) table() {
	l.ensure(2 * RowHeight)
	l.tableHeader()

	places := money.MinorUnits(l.currency)
	for _, line := range l.doc.Totals.Lines {
		if l.y > ContentBottom {
			l.continuePage()
			l.tableHeader()
		}
		item := line.Item
		l.text(ColDescription, l.y, truncate(item.Description, descriptionRunes), "", 9)
		l.text(ColQuantity, l.y, money.FormatQuantity(item.Quantity), "", 9)
		l.text(ColUnit, l.y, truncate(item.Unit, 8), "", 9)
		l.text(ColUnitPrice, l.y, money.FormatNumber(item.UnitPrice, places), "", 9)
		l.text(ColTax, l.y, money.FormatRate(item.TaxRate), "", 9)
		l.textRight(ColTotalRight, l.y, money.FormatNumber(line.Total, places), "", 9)
		l.y += RowHeight
	}
	l.rule(l.y - RowHeight + 6)
	l.y += LineHeight / 2
}

func (l *layout) totals() {
	t := l.doc.Totals
	rows := [][2]string{{"Subtotal", money.Format(t.Subtotal, l.currency)}}
	if t.LineTax.IsPositive() {
		rows = append(rows, [2]string{"Incl. line tax", money.Format(t.LineTax, l.currency)})
	}
	if t.TaxRateApplied.IsPositive() {
		rows = append(rows, [2]string{"Tax " + money.FormatRate(t.TaxRateApplied), money.Format(t.TaxAmount, l.currency)})
	}

	l.ensure(float64(len(rows)) * RowHeight)
	for _, r := range rows {
		l.text(ColUnitPrice, l.y, r[0], "", 10)
		l.textRight(ColTotalRight, l.y, r[1], "", 10)
		l.y += RowHeight
	}
	l.text(ColUnitPrice, l.y, "Total", "B", 11)
	l.textRight(ColTotalRight, l.y, money.Format(t.Total, l.currency), "B", 11)
	l.y += 2 * RowHeight
}

func (l *layout) payment() {
	inv, bank := l.doc.Invoice, l.doc.Company.Bank

	lines := []string{
		"Please pay by " + inv.DueDate.Format(dateLayout) + " quoting " + inv.Number + ".",
	}
	if !bank.Empty() {
		lines = appendLabeled(lines, "Account holder", bank.AccountHolder)
		lines = appendLabeled(lines, "Bank", bank.BankName)
		lines = appendLabeled(lines, "IBAN", bank.IBAN)
		lines = appendLabeled(lines, "BIC", bank.BIC)
	}

	l.ensure(float64(len(lines)+1) * LineHeight)
	l.text(ColDescription, l.y, "Payment", "B", 10)
	l.y += LineHeight
	for _, s := range lines {
		l.text(ColDescription, l.y, s, "", 10)
		l.y += LineHeight
	}

	notes := wrap(inv.Notes, notesRunes)
	if len(notes) == 0 {
		return
	}
	l.y += LineHeight
	l.ensure(2 * LineHeight)
	l.text(ColDescription, l.y, "Notes", "B", 10)
	l.y += LineHeight
	for _, s := range notes {
		l.ensure(0)
		l.text(ColDescription, l.y, s, "", 10)
		l.y += LineHeight
	}
}

func (l *layout) footers() {
	footer := strings.TrimSpace(l.doc.Footer)
	n := len(l.pages)
	for i := range l.pages {
		p := &l.pages[i]
		if footer != "" {
			p.Ops = append(p.Ops, Op{Kind: OpText, X: ColDescription, Y: FooterY, Text: footer, Size: 8})
		}
		p.Ops = append(p.Ops, Op{
			Kind:  OpText,
			X:     ColTotalRight,
			Y:     FooterY,
			Text:  fmt.Sprintf("Page %d of %d", i+1, n),
			Size:  8,
			Align: AlignRight,
		})
	}
}

func appendNonEmpty(dst []string, values ...string) []string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			dst = append(dst, v)
		}
	}
	return dst
}

func appendLabeled(dst []string, label, value string) []string {
	if value = strings.TrimSpace(value); value != "" {
		dst = append(dst, label+": "+value)
	}
	return dst
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-3]) + "..."
}

// wrap breaks s on whitespace into lines of at most width runes. Explicit
// newlines are kept.
func wrap(s string, width int) []string {
	var out []string
	for _, para := range strings.Split(strings.TrimSpace(s), "\n") {
		var line []rune
		for _, word := range strings.Fields(para) {
			w := []rune(word)
			for len(w) > width {
				if len(line) > 0 {
					out = append(out, string(line))
					line = nil
				}
				out = append(out, string(w[:width]))
				w = w[width:]
			}
			switch {
			case len(line) == 0:
				line = w
			case len(line)+1+len(w) <= width:
				line = append(append(line, ' '), w...)
			default:
				out = append(out, string(line))
				line = w
			}
		}
		if len(line) > 0 {
			out = append(out, string(line))
		}
	}
	return out
}
