package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRoundUsesHalfToEven(t *testing.T) {
	tests := []struct {
		in       string
		currency string
		want     string
	}{
		{"2.345", "EUR", "2.34"},
		{"2.355", "EUR", "2.36"},
		{"2.3451", "EUR", "2.35"},
		{"-2.345", "EUR", "-2.34"},
		{"1234.5", "JPY", "1234"},
		{"1235.5", "JPY", "1236"},
		{"1.2345", "KWD", "1.234"},
		{"10", "", "10"},
	}

	for _, tt := range tests {
		t.Run(tt.in+"_"+tt.currency, func(t *testing.T) {
			got := Round(decimal.RequireFromString(tt.in), tt.currency)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "EUR 12,500.00", Format(decimal.NewFromInt(12500), "eur"))
	assert.Equal(t, "EUR 0.00", Format(decimal.Zero, ""))
	assert.Equal(t, "USD 1,234,567.89", Format(decimal.RequireFromString("1234567.886"), "USD"))
	assert.Equal(t, "JPY 1,000", Format(decimal.NewFromInt(1000), "JPY"))
	assert.Equal(t, "EUR -999.50", Format(decimal.RequireFromString("-999.5"), "EUR"))
	assert.Equal(t, "EUR 100.00", Format(decimal.NewFromInt(100), "EUR"))
}

func TestFormatQuantityAndRate(t *testing.T) {
	assert.Equal(t, "10", FormatQuantity(decimal.RequireFromString("10.000")))
	assert.Equal(t, "1.5", FormatQuantity(decimal.RequireFromString("1.50")))
	assert.Equal(t, "25%", FormatRate(decimal.NewFromInt(25)))
}
