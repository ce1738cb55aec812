// Package domain contains the invoice records and their lifecycle rules.
package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is allowed.
func (s InvoiceStatus) Terminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

var transitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDraft:   {InvoiceStatusSent, InvoiceStatusCancelled},
	InvoiceStatusSent:    {InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled},
	InvoiceStatusOverdue: {InvoiceStatusPaid, InvoiceStatusCancelled, InvoiceStatusSent},
}

// CanTransition reports whether an explicit status update from -> to is allowed.
func CanTransition(from, to InvoiceStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Client is a point-in-time snapshot of the customer, embedded by value.
type Client struct {
	Name               string `json:"name"`
	ContactName        string `json:"contactName"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	Street             string `json:"street"`
	City               string `json:"city"`
	PostalCode         string `json:"postalCode"`
	Country            string `json:"country"`
	TaxID              string `json:"taxId"`
	RegistrationNumber string `json:"registrationNumber"`
}

// AddressLines returns the non-empty address lines for printing.
func (c Client) AddressLines() []string {
	out := make([]string, 0, 3)
	if s := strings.TrimSpace(c.Street); s != "" {
		out = append(out, s)
	}
	if s := strings.TrimSpace(strings.TrimSpace(c.PostalCode) + " " + strings.TrimSpace(c.City)); s != "" {
		out = append(out, s)
	}
	if s := strings.TrimSpace(c.Country); s != "" {
		out = append(out, s)
	}
	return out
}

// LineItem is one billable row. TaxRate is a percentage (25 = 25%).
type LineItem struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"productId,omitempty"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TaxRate     decimal.Decimal `json:"taxRate"`
}

// Invoice is a billing document. Totals are never stored: they are derived
// by the calculator from the line items on every read.
type Invoice struct {
	ID              string          `json:"id"`
	Number          string          `json:"number"`
	CompanyID       string          `json:"companyId,omitempty"`
	IssueDate       time.Time       `json:"issueDate"`
	DueDate         time.Time       `json:"dueDate"`
	Client          Client          `json:"client"`
	LineItems       []LineItem      `json:"lineItems"`
	Status          InvoiceStatus   `json:"status"`
	Notes           string          `json:"notes"`
	PaymentTermDays int             `json:"paymentTermDays"`
	Currency        string          `json:"currency"`
	TaxRate         decimal.Decimal `json:"taxRate"`
	SentAt          *time.Time      `json:"sentAt,omitempty"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// OwnerCompanyID implements partition.Owned.
func (i Invoice) OwnerCompanyID() string { return i.CompanyID }

// DueDateFor returns issue + terms. Later edits recompute it only when the
// issue date or the terms themselves are edited.
func DueDateFor(issue time.Time, paymentTermDays int) time.Time {
	return issue.AddDate(0, 0, paymentTermDays)
}

// EffectiveStatus derives "overdue" for a sent invoice whose due date has
// passed. The stored status is left untouched.
func (i Invoice) EffectiveStatus(now time.Time) InvoiceStatus {
	if i.Status == InvoiceStatusSent && dateOnly(now).After(dateOnly(i.DueDate)) {
		return InvoiceStatusOverdue
	}
	return i.Status
}

// IsOverdue reports whether the invoice is overdue as of now.
func (i Invoice) IsOverdue(now time.Time) bool {
	return i.EffectiveStatus(now) == InvoiceStatusOverdue
}

// Clone returns a deep copy so callers can mutate without aliasing line items.
func (i Invoice) Clone() Invoice {
	out := i
	if i.LineItems != nil {
		out.LineItems = make([]LineItem, len(i.LineItems))
		copy(out.LineItems, i.LineItems)
	}
	if i.SentAt != nil {
		t := *i.SentAt
		out.SentAt = &t
	}
	if i.PaidAt != nil {
		t := *i.PaidAt
		out.PaidAt = &t
	}
	return out
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
