package domain

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

type Service interface {
	List(ctx context.Context, companyID string, req ListRequest) ([]Product, error)
	Get(ctx context.Context, companyID, id string) (*Product, error)
	Create(ctx context.Context, companyID string, req CreateRequest) (*Product, error)
	Update(ctx context.Context, companyID, id string, req UpdateRequest) (*Product, error)
	Delete(ctx context.Context, companyID, id string) error
	// RecordUsage bumps the usage counters of the given products.
	RecordUsage(ctx context.Context, productIDs []string, at time.Time) error
	ExportCSV(ctx context.Context, companyID string, w io.Writer) error
}

type ListRequest struct {
	Category   string
	ActiveOnly bool
}

type CreateRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Unit        string          `json:"unit"`
	Category    string          `json:"category"`
	TaxRate     decimal.Decimal `json:"taxRate"`
	IsActive    *bool           `json:"isActive"`
}

type UpdateRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	UnitPrice   *decimal.Decimal `json:"unitPrice"`
	Unit        *string          `json:"unit"`
	Category    *string          `json:"category"`
	TaxRate     *decimal.Decimal `json:"taxRate"`
	IsActive    *bool            `json:"isActive"`
}
