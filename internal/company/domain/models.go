// Package domain contains the company (tenant) profile.
package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/folio/internal/validation"
)

// Address is a postal address.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// Lines returns the non-empty address lines for printing.
func (a Address) Lines() []string {
	out := make([]string, 0, 3)
	if s := strings.TrimSpace(a.Street); s != "" {
		out = append(out, s)
	}
	city := strings.TrimSpace(strings.TrimSpace(a.PostalCode) + " " + strings.TrimSpace(a.City))
	if city != "" {
		out = append(out, city)
	}
	if c := strings.TrimSpace(a.Country); c != "" {
		out = append(out, c)
	}
	return out
}

// BankDetails are the bank-transfer details printed on invoices.
type BankDetails struct {
	AccountHolder string `json:"accountHolder"`
	BankName      string `json:"bankName"`
	IBAN          string `json:"iban"`
	BIC           string `json:"bic"`
}

// Empty reports whether no transfer detail is set.
func (b BankDetails) Empty() bool {
	return strings.TrimSpace(b.IBAN) == "" && strings.TrimSpace(b.BankName) == "" && strings.TrimSpace(b.AccountHolder) == ""
}

// Company is a billing entity. Exactly one company in a non-empty collection
// is primary: the one flagged, else the first.
type Company struct {
	ID                     string          `json:"id"`
	Name                   string          `json:"name"`
	LegalName              string          `json:"legalName"`
	TaxID                  string          `json:"taxId"`
	RegistrationNumber     string          `json:"registrationNumber"`
	Email                  string          `json:"email"`
	Phone                  string          `json:"phone"`
	Address                Address         `json:"address"`
	Bank                   BankDetails     `json:"bank"`
	DefaultPaymentTermDays int             `json:"defaultPaymentTermDays"`
	DefaultCurrency        string          `json:"defaultCurrency"`
	DefaultTaxRate         decimal.Decimal `json:"defaultTaxRate"`
	IsPrimary              bool            `json:"isPrimary"`
	IsActive               bool            `json:"isActive"`
	CreatedAt              time.Time       `json:"createdAt"`
	UpdatedAt              time.Time       `json:"updatedAt"`
}

// DisplayName prefers the legal name for printed documents.
func (c Company) DisplayName() string {
	if n := strings.TrimSpace(c.LegalName); n != "" {
		return n
	}
	return strings.TrimSpace(c.Name)
}

// Validate reports field-level problems with the profile.
func (c Company) Validate() error {
	v := &validation.ValidationErrors{}
	if strings.TrimSpace(c.Name) == "" {
		v.Add("name", "required", "company name is required")
	}
	if c.DefaultPaymentTermDays < 0 {
		v.Add("defaultPaymentTermDays", "invalid_payment_terms", "payment terms cannot be negative")
	}
	if c.DefaultTaxRate.IsNegative() || c.DefaultTaxRate.GreaterThan(decimal.NewFromInt(100)) {
		v.Add("defaultTaxRate", "invalid_tax_rate", "tax rate must be between 0 and 100")
	}
	if cur := strings.TrimSpace(c.DefaultCurrency); cur != "" && len(cur) != 3 {
		v.Add("defaultCurrency", "invalid_currency", "currency must be a 3-letter ISO code")
	}
	return v.Err()
}
