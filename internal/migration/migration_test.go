package migration

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/folio/internal/clock"
	"github.com/smallbiznis/folio/internal/store"
	"github.com/smallbiznis/folio/internal/store/filestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	legacyCompanies = `[{"name":"Alpha","isPrimary":true,"id":"10"}]`
	legacyProducts  = `[{"name":"Consulting","unitPrice":"1000","usageCount":12345678901234567},{"id":"p-2","name":"Hosting","companyId":"20"}]`
	legacyInvoices  = `[{"number":"2025-001","lineItems":[{"description":" consulting ","quantity":"10","unitPrice":"1000"},{"description":"Hosting","quantity":"1","unitPrice":"5"}]}]`
)

type fixture struct {
	dir     string
	backend *filestore.Store
	runner  *Runner
}

func newFixture(t *testing.T, migrations ...Migration) fixture {
	t.Helper()
	dir := t.TempDir()
	clk := clock.NewFakeClock(time.Date(2026, time.October, 16, 12, 0, 0, 0, time.UTC))
	backend, err := filestore.New(filestore.Config{Dir: dir}, clk, zap.NewNop())
	require.NoError(t, err)
	node, err := snowflake.NewNode(7)
	require.NoError(t, err)
	return fixture{
		dir:     dir,
		backend: backend,
		runner:  NewRunner(backend, dir, "2.0.0", clk, zap.NewNop(), node, migrations...),
	}
}

func (f fixture) writeLegacy(t *testing.T) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "companies.json"), []byte(legacyCompanies), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "products.json"), []byte(legacyProducts), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "invoices.json"), []byte(legacyInvoices), 0o644))
}

func (f fixture) items(t *testing.T, kind store.Kind) []Item {
	t.Helper()
	env, err := f.backend.Read(context.Background(), kind)
	require.NoError(t, err)
	assert.Equal(t, store.SchemaVersion, env.SchemaVersion)
	items, err := decodeItems(env.Items)
	require.NoError(t, err)
	return items
}

func TestRunMigratesLegacyData(t *testing.T) {
	f := newFixture(t)
	f.writeLegacy(t)

	res, err := f.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.From)
	assert.Equal(t, []int{2, 3}, res.Applied)
	assert.Equal(t, filepath.Join(f.dir, "migrations", "pre-v3"), res.SnapshotDir)

	products := f.items(t, store.KindProducts)
	require.Len(t, products, 2)
	productID := stringField(products[0], "id")
	assert.NotEmpty(t, productID)
	assert.Equal(t, "p-2", stringField(products[1], "id"))
	assert.Equal(t, json.Number("12345678901234567"), products[0]["usageCount"], "large numbers survive untouched")

	invoices := f.items(t, store.KindInvoices)
	require.Len(t, invoices, 1)
	assert.NotEmpty(t, stringField(invoices[0], "id"))
	lines := lineItems(invoices[0])
	require.Len(t, lines, 2)
	assert.NotEmpty(t, stringField(lines[0], "id"))
	assert.Equal(t, productID, stringField(lines[0], "productId"))
	assert.Empty(t, stringField(lines[1], "productId"), "product owned by another company is not linked")

	marker, found, err := f.runner.ReadMarker()
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, store.SchemaVersion, marker.SchemaVersion)
	assert.Equal(t, "2.0.0", marker.AppVersion)

	snap, err := os.ReadFile(filepath.Join(res.SnapshotDir, "invoices.json"))
	require.NoError(t, err)
	assert.Contains(t, string(snap), `"schemaVersion": 1`)
}

func TestRunIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.writeLegacy(t)
	ctx := context.Background()

	_, err := f.runner.Run(ctx)
	require.NoError(t, err)
	before, err := os.ReadFile(filepath.Join(f.dir, "invoices.json"))
	require.NoError(t, err)

	res, err := f.runner.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Applied)

	after, err := os.ReadFile(filepath.Join(f.dir, "invoices.json"))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestMigrationsAreIdempotentOnDataset(t *testing.T) {
	ids := 0
	env := Env{Now: time.Now(), NewID: func() string { ids++; return "gen-" + strconv.Itoa(ids) }}
	data := Dataset{}
	for kind, raw := range map[store.Kind]string{
		store.KindCompanies: legacyCompanies,
		store.KindProducts:  legacyProducts,
		store.KindInvoices:  legacyInvoices,
	} {
		items, err := decodeItems(json.RawMessage(raw))
		require.NoError(t, err)
		data[kind] = items
	}

	for _, m := range Registered() {
		require.NoError(t, m.Apply(data, env))
	}
	once, err := json.Marshal(data)
	require.NoError(t, err)

	for _, m := range Registered() {
		require.NoError(t, m.Apply(data, env))
	}
	twice, err := json.Marshal(data)
	require.NoError(t, err)
	assert.JSONEq(t, string(once), string(twice))
}

func TestFailedMigrationLeavesDataAndMarkerUntouched(t *testing.T) {
	failing := Migration{Version: 3, Name: "explode", Apply: func(data Dataset, _ Env) error {
		data[store.KindInvoices] = nil
		return errors.New("boom")
	}}
	f := newFixture(t, Registered()[0], Registered()[1], failing)
	f.writeLegacy(t)

	var before [][]byte
	for _, kind := range store.AllKinds() {
		raw, err := os.ReadFile(filepath.Join(f.dir, string(kind)+".json"))
		require.NoError(t, err)
		before = append(before, raw)
	}

	_, err := f.runner.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "explode")

	for i, kind := range store.AllKinds() {
		raw, err := os.ReadFile(filepath.Join(f.dir, string(kind)+".json"))
		require.NoError(t, err)
		assert.Equal(t, before[i], raw, "kind %s", kind)
	}
	_, found, err := f.runner.ReadMarker()
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFreshInstallOnlyWritesMarker(t *testing.T) {
	f := newFixture(t)

	res, err := f.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Applied)

	marker, found, err := f.runner.ReadMarker()
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, store.SchemaVersion, marker.SchemaVersion)

	_, err = os.Stat(filepath.Join(f.dir, "invoices.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestDowngradeRefused(t *testing.T) {
	f := newFixture(t)
	_, err := f.runner.Migrate(context.Background(), store.SchemaVersion+1, store.SchemaVersion)
	assert.ErrorIs(t, err, ErrDowngrade)
}

func TestRunSkipsUndecodableCollection(t *testing.T) {
	f := newFixture(t)
	f.writeLegacy(t)
	truncated := []byte(legacyInvoices[:20])
	invoicesPath := filepath.Join(f.dir, "invoices.json")
	require.NoError(t, os.WriteFile(invoicesPath, truncated, 0o644))
	ctx := context.Background()

	res, err := f.runner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, res.Applied)

	products := f.items(t, store.KindProducts)
	require.Len(t, products, 2)
	assert.NotEmpty(t, stringField(products[0], "id"))

	raw, err := os.ReadFile(invoicesPath)
	require.NoError(t, err)
	assert.Equal(t, truncated, raw, "undecodable data is left for the store to quarantine")

	loaded := store.NewCollection[Item](f.backend, store.KindInvoices).Load(ctx)
	assert.Equal(t, store.SourceSeedRecovered, loaded.Source)
	assert.True(t, store.IsDecodeError(loaded.Diagnostic))
	assert.NotEmpty(t, loaded.QuarantinePath)
}
