// Package money holds the rounding and formatting policy shared by the
// calculator and the renderer. All amounts are shopspring decimals; floats
// never touch a money value.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when an invoice or company carries no currency.
const DefaultCurrency = "EUR"

var minorUnits = map[string]int32{
	"JPY": 0,
	"KRW": 0,
	"VND": 0,
	"CLP": 0,
	"ISK": 0,
	"BHD": 3,
	"KWD": 3,
	"OMR": 3,
	"JOD": 3,
	"TND": 3,
}

var hundred = decimal.NewFromInt(100)

// MinorUnits returns the number of decimal places of the currency's minor unit.
func MinorUnits(currency string) int32 {
	if places, ok := minorUnits[normalize(currency)]; ok {
		return places
	}
	return 2
}

// Round rounds amount to the currency minor unit using round-half-to-even.
//
// This is the only rounding used for money; every stored or printed amount
// goes through here.
func Round(amount decimal.Decimal, currency string) decimal.Decimal {
	return amount.RoundBank(MinorUnits(currency))
}

// Percent returns amount * rate / 100 without rounding.
func Percent(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(hundred)
}

// Format renders an amount as "<CUR> 12,345.67". The amount is rounded with
// Round first so printed values always match computed ones.
func Format(amount decimal.Decimal, currency string) string {
	cur := normalize(currency)
	return cur + " " + FormatNumber(Round(amount, cur), MinorUnits(cur))
}

// FormatNumber renders a decimal with fixed places and comma thousands separators.
func FormatNumber(amount decimal.Decimal, places int32) string {
	raw := amount.StringFixedBank(places)

	negative := strings.HasPrefix(raw, "-")
	raw = strings.TrimPrefix(raw, "-")

	intPart, fracPart, _ := strings.Cut(raw, ".")

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if fracPart != "" {
		b.WriteByte('.')
		b.WriteString(fracPart)
	}
	return b.String()
}

// FormatQuantity prints a quantity without trailing zeros ("10", "1.5").
func FormatQuantity(qty decimal.Decimal) string {
	return qty.String()
}

// FormatRate prints a percentage rate ("25%", "7.5%").
func FormatRate(rate decimal.Decimal) string {
	return rate.String() + "%"
}

func normalize(currency string) string {
	cur := strings.ToUpper(strings.TrimSpace(currency))
	if cur == "" {
		return DefaultCurrency
	}
	return cur
}
