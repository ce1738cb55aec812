// Package seed provides the placeholder records used when a collection has
// never been saved or cannot be read.
package seed

import (
	"time"

	"github.com/shopspring/decimal"
	companydomain "github.com/smallbiznis/folio/internal/company/domain"
	invoicedomain "github.com/smallbiznis/folio/internal/invoice/domain"
	"github.com/smallbiznis/folio/internal/money"
	productdomain "github.com/smallbiznis/folio/internal/product/domain"
)

// Fixed ids keep seed data stable across restarts, so records created
// against the sample company survive until the user replaces it.
const (
	CompanyID        = "1000000000000000001"
	consultingID     = "1000000000000000101"
	supportID        = "1000000000000000102"
	sampleInvoiceID  = "1000000000000000201"
	sampleLineItemID = "1000000000000000202"

	defaultPaymentTermDays = 30
)

func Companies(now time.Time) []companydomain.Company {
	now = now.UTC()
	return []companydomain.Company{
		{
			ID:                     CompanyID,
			Name:                   "My Company",
			Email:                  "billing@example.com",
			Address:                companydomain.Address{Street: "1 Main Street", City: "Springfield", PostalCode: "12345", Country: "US"},
			DefaultPaymentTermDays: defaultPaymentTermDays,
			DefaultCurrency:        money.DefaultCurrency,
			DefaultTaxRate:         decimal.Zero,
			IsPrimary:              true,
			IsActive:               true,
			CreatedAt:              now,
			UpdatedAt:              now,
		},
	}
}

func Products(now time.Time) []productdomain.Product {
	now = now.UTC()
	return []productdomain.Product{
		{
			ID:          consultingID,
			CompanyID:   CompanyID,
			Name:        "Consulting",
			Description: "Consulting services",
			UnitPrice:   decimal.NewFromInt(100),
			Unit:        "hour",
			Category:    "Services",
			TaxRate:     decimal.Zero,
			IsActive:    true,
			CreatedAt:   now,
		},
		{
			ID:          supportID,
			CompanyID:   CompanyID,
			Name:        "Support plan",
			Description: "Monthly support retainer",
			UnitPrice:   decimal.NewFromInt(500),
			Unit:        "month",
			Category:    "Subscriptions",
			TaxRate:     decimal.Zero,
			IsActive:    true,
			CreatedAt:   now,
		},
	}
}

// Invoices returns a single draft invoice dated now.
func Invoices(now time.Time) []invoicedomain.Invoice {
	now = now.UTC()
	issue := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return []invoicedomain.Invoice{
		{
			ID:              sampleInvoiceID,
			Number:          issue.Format("2006") + "-001",
			CompanyID:       CompanyID,
			IssueDate:       issue,
			DueDate:         invoicedomain.DueDateFor(issue, defaultPaymentTermDays),
			PaymentTermDays: defaultPaymentTermDays,
			Currency:        money.DefaultCurrency,
			TaxRate:         decimal.Zero,
			Status:          invoicedomain.InvoiceStatusDraft,
			Client:          invoicedomain.Client{Name: "Sample Client", Email: "client@example.com"},
			LineItems: []invoicedomain.LineItem{
				{
					ID:          sampleLineItemID,
					ProductID:   consultingID,
					Description: "Consulting services",
					Quantity:    decimal.NewFromInt(1),
					Unit:        "hour",
					UnitPrice:   decimal.NewFromInt(100),
					TaxRate:     decimal.Zero,
				},
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}
