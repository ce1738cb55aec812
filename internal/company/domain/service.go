package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

type Service interface {
	List(ctx context.Context) ([]Company, error)
	Get(ctx context.Context, id string) (*Company, error)
	Create(ctx context.Context, req CreateRequest) (*Company, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Company, error)
	Activate(ctx context.Context, id string) (*Company, error)
	MakePrimary(ctx context.Context, id string) (*Company, error)
	Delete(ctx context.Context, id string) error
	// Resolve returns the company a request should operate on: requestedID
	// when it exists, else the active company, else the primary.
	Resolve(ctx context.Context, requestedID string) (*Company, error)
}

type CreateRequest struct {
	Name                   string           `json:"name"`
	LegalName              string           `json:"legalName"`
	TaxID                  string           `json:"taxId"`
	RegistrationNumber     string           `json:"registrationNumber"`
	Email                  string           `json:"email"`
	Phone                  string           `json:"phone"`
	Address                Address          `json:"address"`
	Bank                   BankDetails      `json:"bank"`
	DefaultPaymentTermDays *int             `json:"defaultPaymentTermDays"`
	DefaultCurrency        string           `json:"defaultCurrency"`
	DefaultTaxRate         *decimal.Decimal `json:"defaultTaxRate"`
}

// UpdateRequest changes only the fields that are set.
type UpdateRequest struct {
	Name                   *string          `json:"name"`
	LegalName              *string          `json:"legalName"`
	TaxID                  *string          `json:"taxId"`
	RegistrationNumber     *string          `json:"registrationNumber"`
	Email                  *string          `json:"email"`
	Phone                  *string          `json:"phone"`
	Address                *Address         `json:"address"`
	Bank                   *BankDetails     `json:"bank"`
	DefaultPaymentTermDays *int             `json:"defaultPaymentTermDays"`
	DefaultCurrency        *string          `json:"defaultCurrency"`
	DefaultTaxRate         *decimal.Decimal `json:"defaultTaxRate"`
}
