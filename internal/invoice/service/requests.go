package service

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/folio/internal/invoice/calc"
	invoicedomain "github.com/smallbiznis/folio/internal/invoice/domain"
)

type LineItemInput struct {
	ProductID   string           `json:"productId"`
	Description string           `json:"description"`
	Quantity    decimal.Decimal  `json:"quantity"`
	Unit        string           `json:"unit"`
	UnitPrice   *decimal.Decimal `json:"unitPrice"`
	TaxRate     *decimal.Decimal `json:"taxRate"`
}

type CreateRequest struct {
	IssueDate       *time.Time           `json:"issueDate"`
	PaymentTermDays *int                 `json:"paymentTermDays"`
	Client          invoicedomain.Client `json:"client"`
	LineItems       []LineItemInput      `json:"lineItems"`
	Notes           string               `json:"notes"`
	Currency        string               `json:"currency"`
	TaxRate         *decimal.Decimal     `json:"taxRate"`
}

// UpdateRequest changes only the fields that are set. Changing the issue
// date or terms recomputes the due date.
type UpdateRequest struct {
	Number          *string               `json:"number"`
	IssueDate       *time.Time            `json:"issueDate"`
	PaymentTermDays *int                  `json:"paymentTermDays"`
	Client          *invoicedomain.Client `json:"client"`
	LineItems       []LineItemInput       `json:"lineItems"`
	Notes           *string               `json:"notes"`
	Currency        *string               `json:"currency"`
	TaxRate         *decimal.Decimal      `json:"taxRate"`
}

type ListRequest struct {
	Status invoicedomain.InvoiceStatus
}

// View is an invoice with its derived status and totals.
type View struct {
	Invoice         invoicedomain.Invoice       `json:"invoice"`
	EffectiveStatus invoicedomain.InvoiceStatus `json:"effectiveStatus"`
	Totals          calc.Totals                 `json:"totals"`
}

// ReminderResult counts the events emitted by a reminder pass.
type ReminderResult struct {
	DueSoon []string `json:"dueSoon"`
	Overdue []string `json:"overdue"`
}
