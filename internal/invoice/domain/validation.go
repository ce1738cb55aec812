package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/folio/internal/validation"
)

var maxRate = decimal.NewFromInt(100)

// ValidateLineItem collects problems with a single row.
func ValidateLineItem(item LineItem) *validation.ValidationErrors {
	v := &validation.ValidationErrors{}
	if strings.TrimSpace(item.Description) == "" {
		v.Add("description", "required", "description is required")
	}
	if !item.Quantity.IsPositive() {
		v.Add("quantity", "invalid_quantity", "quantity must be greater than zero")
	}
	if item.UnitPrice.IsNegative() {
		v.Add("unitPrice", "invalid_price", "unit price cannot be negative")
	}
	if item.TaxRate.IsNegative() || item.TaxRate.GreaterThan(maxRate) {
		v.Add("taxRate", "invalid_tax_rate", "tax rate must be between 0 and 100")
	}
	return v
}

// Validate returns a *validation.ValidationErrors listing every field-level
// problem, or nil. It never panics on malformed input.
func Validate(inv Invoice) error {
	v := &validation.ValidationErrors{}

	if strings.TrimSpace(inv.Client.Name) == "" {
		v.Add("client.name", "required", "client name is required")
	}
	if cur := strings.TrimSpace(inv.Currency); len(cur) != 3 {
		v.Add("currency", "invalid_currency", "currency must be a 3-letter ISO code")
	}
	if inv.IssueDate.IsZero() {
		v.Add("issueDate", "required", "issue date is required")
	}
	if inv.PaymentTermDays < 0 {
		v.Add("paymentTermDays", "invalid_payment_terms", "payment terms cannot be negative")
	}
	if !inv.IssueDate.IsZero() && inv.DueDate.Before(inv.IssueDate) {
		v.Add("dueDate", "invalid_due_date", "due date cannot be before issue date")
	}
	if inv.TaxRate.IsNegative() || inv.TaxRate.GreaterThan(maxRate) {
		v.Add("taxRate", "invalid_tax_rate", "tax rate must be between 0 and 100")
	}
	if inv.Status != "" && !inv.Status.Valid() {
		v.Add("status", "invalid_status", "unknown invoice status")
	}
	if inv.Status != "" && inv.Status != InvoiceStatusDraft && len(inv.LineItems) == 0 {
		v.Add("lineItems", "required", "an invoice needs at least one line item before it leaves draft")
	}
	for idx, item := range inv.LineItems {
		v.Merge(fmt.Sprintf("lineItems[%d]", idx), ValidateLineItem(item))
	}

	return v.Err()
}
