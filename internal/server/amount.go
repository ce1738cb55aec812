package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	invoiceservice "github.com/smallbiznis/folio/internal/invoice/service"
	"github.com/smallbiznis/folio/internal/validation"
)

// amount keeps a numeric request field verbatim so a malformed value is
// reported against its field instead of failing the whole body.
type amount struct {
	raw string
	set bool
}

func (a *amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = amount{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		s = string(b)
	}
	*a = amount{raw: strings.TrimSpace(s), set: true}
	return nil
}

func (a amount) decimal() (decimal.Decimal, error) {
	return decimal.NewFromString(a.raw)
}

type lineItemRequest struct {
	ProductID   string `json:"productId"`
	Description string `json:"description"`
	Quantity    amount `json:"quantity"`
	Unit        string `json:"unit"`
	UnitPrice   amount `json:"unitPrice"`
	TaxRate     amount `json:"taxRate"`
}

type amountParser struct {
	errs validation.ValidationErrors
}

func (p *amountParser) required(field string, a amount) decimal.Decimal {
	if !a.set {
		return decimal.Zero
	}
	d, err := a.decimal()
	if err != nil {
		p.errs.Add(field, "invalid_number", fmt.Sprintf("%q is not a number", a.raw))
		return decimal.Zero
	}
	return d
}

func (p *amountParser) optional(field string, a amount) *decimal.Decimal {
	if !a.set {
		return nil
	}
	d, err := a.decimal()
	if err != nil {
		p.errs.Add(field, "invalid_number", fmt.Sprintf("%q is not a number", a.raw))
		return nil
	}
	return &d
}

func (p *amountParser) lineItems(items []lineItemRequest) []invoiceservice.LineItemInput {
	if items == nil {
		return nil
	}
	out := make([]invoiceservice.LineItemInput, 0, len(items))
	for idx, item := range items {
		prefix := fmt.Sprintf("lineItems[%d].", idx)
		out = append(out, invoiceservice.LineItemInput{
			ProductID:   item.ProductID,
			Description: item.Description,
			Quantity:    p.required(prefix+"quantity", item.Quantity),
			Unit:        item.Unit,
			UnitPrice:   p.optional(prefix+"unitPrice", item.UnitPrice),
			TaxRate:     p.optional(prefix+"taxRate", item.TaxRate),
		})
	}
	return out
}

func (p *amountParser) Err() error {
	return p.errs.Err()
}
