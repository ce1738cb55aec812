package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/folio/internal/clock"
	invoicedomain "github.com/smallbiznis/folio/internal/invoice/domain"
	"github.com/smallbiznis/folio/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, time.October, 16, 9, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{Dir: t.TempDir()}, clock.NewFakeClock(testNow), zap.NewNop())
	require.NoError(t, err)
	return s
}

func sampleInvoices() []invoicedomain.Invoice {
	issue := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)
	return []invoicedomain.Invoice{
		{
			ID:              "1843021011205402624",
			Number:          "2026-001",
			CompanyID:       "company-a",
			IssueDate:       issue,
			DueDate:         invoicedomain.DueDateFor(issue, 30),
			PaymentTermDays: 30,
			Currency:        "EUR",
			TaxRate:         decimal.NewFromInt(25),
			Status:          invoicedomain.InvoiceStatusSent,
			Client:          invoicedomain.Client{Name: "Nordlys AS", Email: "billing@nordlys.no"},
			LineItems: []invoicedomain.LineItem{
				{ID: "1843021011205402625", Description: "Consulting", Quantity: decimal.RequireFromString("10"), Unit: "hour", UnitPrice: decimal.RequireFromString("1000"), TaxRate: decimal.NewFromInt(25)},
				{ID: "1843021011205402626", Description: "Travel", Quantity: decimal.RequireFromString("1.5"), Unit: "day", UnitPrice: decimal.RequireFromString("333.33"), TaxRate: decimal.Zero},
			},
			CreatedAt: issue,
			UpdatedAt: issue,
		},
		{
			ID:              "1843021011205402700",
			Number:          "2026-002",
			IssueDate:       issue.AddDate(0, 0, 3),
			DueDate:         invoicedomain.DueDateFor(issue.AddDate(0, 0, 3), 14),
			PaymentTermDays: 14,
			Currency:        "NOK",
			Status:          invoicedomain.InvoiceStatusDraft,
			Client:          invoicedomain.Client{Name: "Fjord Bakeri"},
			CreatedAt:       issue,
			UpdatedAt:       issue,
		},
	}
}

func TestSaveLoadRoundTripPreservesContentAndIdentity(t *testing.T) {
	s := newTestStore(t)
	col := store.NewCollection[invoicedomain.Invoice](s, store.KindInvoices)
	ctx := context.Background()

	original := sampleInvoices()
	version, err := col.Save(ctx, original, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	loaded := col.Load(ctx)
	require.NoError(t, loaded.Diagnostic)
	assert.Equal(t, store.SourceStored, loaded.Source)
	assert.Equal(t, int64(1), loaded.Version)
	require.Len(t, loaded.Items, len(original))

	for i := range original {
		want, got := original[i], loaded.Items[i]
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Number, got.Number)
		assert.Equal(t, want.CompanyID, got.CompanyID)
		assert.True(t, want.IssueDate.Equal(got.IssueDate))
		assert.True(t, want.DueDate.Equal(got.DueDate))
		assert.Equal(t, want.Client, got.Client)
		assert.True(t, want.TaxRate.Equal(got.TaxRate))
		require.Len(t, got.LineItems, len(want.LineItems))
		for j := range want.LineItems {
			assert.Equal(t, want.LineItems[j].ID, got.LineItems[j].ID)
			assert.True(t, want.LineItems[j].Quantity.Equal(got.LineItems[j].Quantity))
			assert.True(t, want.LineItems[j].UnitPrice.Equal(got.LineItems[j].UnitPrice))
		}
	}

	// a second round trip must not mint new identities either
	_, err = col.Save(ctx, loaded.Items, loaded.Version)
	require.NoError(t, err)
	again := col.Load(ctx)
	assert.Equal(t, loaded.Items[0].ID, again.Items[0].ID)
	assert.Equal(t, loaded.Items[0].LineItems[1].ID, again.Items[0].LineItems[1].ID)
}

func TestSaveIsDeterministic(t *testing.T) {
	s := newTestStore(t)
	col := store.NewCollection[invoicedomain.Invoice](s, store.KindInvoices, store.WithClock[invoicedomain.Invoice](clock.NewFakeClock(testNow)))
	ctx := context.Background()

	_, err := col.Save(ctx, sampleInvoices(), 0)
	require.NoError(t, err)
	first, err := os.ReadFile(s.Location(store.KindInvoices))
	require.NoError(t, err)

	other := newTestStore(t)
	otherCol := store.NewCollection[invoicedomain.Invoice](other, store.KindInvoices, store.WithClock[invoicedomain.Invoice](clock.NewFakeClock(testNow)))
	_, err = otherCol.Save(ctx, sampleInvoices(), 0)
	require.NoError(t, err)
	second, err := os.ReadFile(other.Location(store.KindInvoices))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.True(t, strings.HasPrefix(string(first), "{\n  \"kind\": \"invoices\",\n  \"schemaVersion\": 3,\n  \"version\": 1,"))
	assert.Contains(t, string(first), `"issueDate": "2026-09-01T00:00:00Z"`)
	assert.Contains(t, string(first), `"unitPrice": "333.33"`)
}

func TestLoadMissingFileUsesSeedWithoutDiagnostic(t *testing.T) {
	s := newTestStore(t)
	seeded := false
	col := store.NewCollection[invoicedomain.Invoice](s, store.KindInvoices,
		store.WithSeed(func(time.Time) []invoicedomain.Invoice {
			seeded = true
			return sampleInvoices()[:1]
		}),
	)

	loaded := col.Load(context.Background())

	assert.True(t, seeded)
	assert.Equal(t, store.SourceSeedFirstRun, loaded.Source)
	assert.NoError(t, loaded.Diagnostic)
	assert.Equal(t, int64(0), loaded.Version)
	assert.Len(t, loaded.Items, 1)
}

func TestLoadCorruptFileUsesSeedAndQuarantines(t *testing.T) {
	s := newTestStore(t)
	path := s.Location(store.KindInvoices)
	require.NoError(t, os.WriteFile(path, []byte(`{"kind":"invoices","items":[{"id":`), 0o644))

	col := store.NewCollection[invoicedomain.Invoice](s, store.KindInvoices,
		store.WithSeed(func(time.Time) []invoicedomain.Invoice { return sampleInvoices() }),
	)
	loaded := col.Load(context.Background())

	assert.Equal(t, store.SourceSeedRecovered, loaded.Source)
	require.Error(t, loaded.Diagnostic)
	assert.True(t, store.IsDecodeError(loaded.Diagnostic))
	assert.Len(t, loaded.Items, 2)

	require.NotEmpty(t, loaded.QuarantinePath)
	quarantined, err := os.ReadFile(loaded.QuarantinePath)
	require.NoError(t, err)
	assert.Equal(t, `{"kind":"invoices","items":[{"id":`, string(quarantined))
	assert.Equal(t, s.Dir(), filepath.Dir(loaded.QuarantinePath))

	// the caller may now overwrite the corrupt file with its recovered data
	version, err := col.Save(context.Background(), loaded.Items, loaded.Version)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
}

func TestLoadWrongItemShapeIsDecodeFailure(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Location(store.KindInvoices), []byte(`{"kind":"invoices","version":4,"items":[{"quantity":{"nested":true},"lineItems":"nope"}]}`), 0o644))

	loaded := store.NewCollection[invoicedomain.Invoice](s, store.KindInvoices).Load(context.Background())

	assert.Equal(t, store.SourceSeedRecovered, loaded.Source)
	assert.True(t, store.IsDecodeError(loaded.Diagnostic))
	assert.Empty(t, loaded.Items)
}

func TestLoadLegacyArrayFile(t *testing.T) {
	s := newTestStore(t)
	raw, err := json.Marshal(sampleInvoices())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.Location(store.KindInvoices), raw, 0o644))

	loaded := store.NewCollection[invoicedomain.Invoice](s, store.KindInvoices).Load(context.Background())

	assert.Equal(t, store.SourceStored, loaded.Source)
	assert.Equal(t, int64(0), loaded.Version)
	assert.Len(t, loaded.Items, 2)
}

func TestStaleWriteIsRejected(t *testing.T) {
	s := newTestStore(t)
	col := store.NewCollection[invoicedomain.Invoice](s, store.KindInvoices)
	ctx := context.Background()

	v1, err := col.Save(ctx, sampleInvoices(), 0)
	require.NoError(t, err)

	// two writers loaded version 1; the second one loses
	_, err = col.Save(ctx, sampleInvoices()[:1], v1)
	require.NoError(t, err)
	_, err = col.Save(ctx, sampleInvoices(), v1)

	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrConcurrentModification))
	var stale *store.StaleWriteError
	require.True(t, errors.As(err, &stale))
	assert.Equal(t, int64(2), stale.Actual)

	loaded := col.Load(ctx)
	assert.Len(t, loaded.Items, 1, "rejected write must not change stored data")
}

func TestWriteFailureIsTypedIOError(t *testing.T) {
	s := newTestStore(t)
	col := store.NewCollection[invoicedomain.Invoice](s, store.KindInvoices)

	// replace the data dir with a file so the temp file cannot be created
	require.NoError(t, os.RemoveAll(s.Dir()))
	require.NoError(t, os.WriteFile(s.Dir(), []byte("not a dir"), 0o644))

	_, err := col.Save(context.Background(), sampleInvoices(), 0)

	require.Error(t, err)
	assert.True(t, store.IsIOError(err))
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	s := newTestStore(t)
	col := store.NewCollection[invoicedomain.Invoice](s, store.KindInvoices)
	ctx := context.Background()

	version := int64(0)
	for i := 0; i < 5; i++ {
		var err error
		version, err = col.Save(ctx, sampleInvoices(), version)
		require.NoError(t, err)
	}

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "invoices.json", entries[0].Name())
}

func TestCanceledContextDoesNotWrite(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Write(ctx, store.KindProducts, store.Envelope{Items: json.RawMessage("[]")}, 0)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	_, statErr := os.Stat(s.Location(store.KindProducts))
	assert.True(t, os.IsNotExist(statErr))
}

func TestTimedOutWriteNeverLands(t *testing.T) {
	s, err := New(Config{Dir: t.TempDir(), IOTimeout: time.Microsecond}, clock.NewFakeClock(testNow), zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	version := int64(0)
	for i := 0; i < 50; i++ {
		next, err := s.Write(ctx, store.KindProducts, store.Envelope{Items: json.RawMessage("[]")}, version)
		if err == nil {
			version = next
		} else {
			assert.True(t, store.IsIOError(err), "unexpected error: %v", err)
		}

		onDisk, readErr := os.ReadFile(s.Location(store.KindProducts))
		if errors.Is(readErr, os.ErrNotExist) {
			assert.Zero(t, version)
			continue
		}
		require.NoError(t, readErr)
		env, decErr := store.DecodeEnvelope(store.KindProducts, onDisk)
		require.NoError(t, decErr)
		assert.Equal(t, version, env.Version, "a failed write must not replace the file")
	}
}
