package seed

import (
	"testing"
	"time"

	invoicedomain "github.com/smallbiznis/folio/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedDataIsValidAndStable(t *testing.T) {
	now := time.Date(2026, time.March, 4, 15, 0, 0, 0, time.UTC)

	companies := Companies(now)
	require.Len(t, companies, 1)
	assert.True(t, companies[0].IsPrimary)
	assert.NoError(t, companies[0].Validate())

	for _, p := range Products(now) {
		assert.NoError(t, p.Validate())
		assert.Equal(t, CompanyID, p.CompanyID)
	}

	invoices := Invoices(now)
	require.Len(t, invoices, 1)
	assert.NoError(t, invoicedomain.Validate(invoices[0]))
	assert.Equal(t, "2026-001", invoices[0].Number)
	assert.Equal(t, invoices[0].IssueDate.AddDate(0, 0, 30), invoices[0].DueDate)

	assert.Equal(t, Invoices(now), Invoices(now))
}
