// Package domain contains the reusable product catalog entry.
package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/folio/internal/validation"
)

var (
	ErrNotFound  = errors.New("product_not_found")
	ErrInvalidID = errors.New("invalid_product_id")
)

// Product is a catalog entry. Line items reference it by ID and keep their
// own description snapshot, so renaming a product never rewrites history.
type Product struct {
	ID          string          `json:"id"`
	CompanyID   string          `json:"companyId,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Unit        string          `json:"unit"`
	Category    string          `json:"category"`
	TaxRate     decimal.Decimal `json:"taxRate"`
	IsActive    bool            `json:"isActive"`
	UsageCount  int             `json:"usageCount"`
	CreatedAt   time.Time       `json:"createdAt"`
	LastUsedAt  *time.Time      `json:"lastUsedAt,omitempty"`
}

// OwnerCompanyID implements partition.Owned.
func (p Product) OwnerCompanyID() string { return p.CompanyID }

func (p Product) Validate() error {
	v := &validation.ValidationErrors{}
	if strings.TrimSpace(p.Name) == "" {
		v.Add("name", "required", "product name is required")
	}
	if p.UnitPrice.IsNegative() {
		v.Add("unitPrice", "invalid_price", "unit price cannot be negative")
	}
	if p.TaxRate.IsNegative() || p.TaxRate.GreaterThan(decimal.NewFromInt(100)) {
		v.Add("taxRate", "invalid_tax_rate", "tax rate must be between 0 and 100")
	}
	return v.Err()
}
