package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/folio/internal/clock"
	companydomain "github.com/smallbiznis/folio/internal/company/domain"
	"github.com/smallbiznis/folio/internal/config"
	invoicedomain "github.com/smallbiznis/folio/internal/invoice/domain"
	productdomain "github.com/smallbiznis/folio/internal/product/domain"
	"github.com/smallbiznis/folio/internal/repository"
	"github.com/smallbiznis/folio/internal/store/filestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	svc  *Service
	cols repository.Collections
	clk  *clock.FakeClock
	dir  string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	clk := clock.NewFakeClock(time.Date(2026, time.October, 16, 8, 0, 0, 0, time.UTC))
	root := t.TempDir()
	backend, err := filestore.New(filestore.Config{Dir: filepath.Join(root, "data")}, clk, zap.NewNop())
	require.NoError(t, err)

	cols := repository.NewCollections(repository.Params{Backend: backend, Clock: clk, Log: zap.NewNop()})
	cfg := config.Config{BackupDir: filepath.Join(root, "backups"), AppVersion: "1.4.0"}
	svc := New(Params{Collections: cols, Config: cfg, Clock: clk, Log: zap.NewNop()})
	return fixture{svc: svc, cols: cols, clk: clk, dir: cfg.BackupDir}
}

func (f fixture) seedData(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := f.cols.Companies.Save(ctx, []companydomain.Company{
		{ID: "10", Name: "Alpha", IsPrimary: true},
		{ID: "20", Name: "Beta"},
	}, 0)
	require.NoError(t, err)
	_, err = f.cols.Invoices.Save(ctx, []invoicedomain.Invoice{
		{ID: "100", Number: "2026-001"},
		{ID: "101", Number: "2026-002", CompanyID: "20"},
		{ID: "102", Number: "2026-003", CompanyID: "10"},
	}, 0)
	require.NoError(t, err)
	_, err = f.cols.Products.Save(ctx, []productdomain.Product{
		{ID: "200", Name: "Widget", CompanyID: "20"},
	}, 0)
	require.NoError(t, err)
}

func TestCreateWritesCompressedSnapshot(t *testing.T) {
	f := newFixture(t)
	f.seedData(t)

	h, err := f.svc.Create(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.dir, h.ID+".backup"), h.Path)
	assert.Equal(t, f.clk.Now(), h.CreatedAt)

	raw, err := os.ReadFile(h.Path)
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	assert.NotEqual(t, byte('{'), raw[0], "file content is compressed")

	snap, err := f.svc.Read(h.ID)
	require.NoError(t, err)
	assert.Equal(t, "1.4.0", snap.AppVersion)
	assert.Len(t, snap.Companies, 2)
	require.Contains(t, snap.PerCompanyData, "10")
	assert.Len(t, snap.PerCompanyData["10"].Invoices, 2, "unowned invoice belongs to the primary company")
	assert.Len(t, snap.PerCompanyData["20"].Invoices, 1)
	assert.Len(t, snap.PerCompanyData["20"].Products, 1)
}

func TestListNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx)
	require.NoError(t, err)
	f.clk.Advance(time.Minute)
	second, err := f.svc.Create(ctx)
	require.NoError(t, err)
	third, err := f.svc.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "notes.txt"), []byte("x"), 0o644))

	list, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{third.ID, second.ID, first.ID}, []string{list[0].ID, list[1].ID, list[2].ID})
}

func TestListWithoutDirectory(t *testing.T) {
	f := newFixture(t)
	list, err := f.svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRestoreRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.seedData(t)
	ctx := context.Background()

	h, err := f.svc.Create(ctx)
	require.NoError(t, err)

	_, err = f.cols.Invoices.Save(ctx, []invoicedomain.Invoice{{ID: "999"}}, 1)
	require.NoError(t, err)

	require.NoError(t, f.svc.Restore(ctx, h.ID))

	invoices := f.cols.Invoices.Load(ctx)
	assert.Equal(t, int64(3), invoices.Version, "restore continues the version sequence")
	ids := []string{}
	for _, inv := range invoices.Items {
		ids = append(ids, inv.ID)
	}
	assert.ElementsMatch(t, []string{"100", "101", "102"}, ids)

	companies := f.cols.Companies.Load(ctx)
	assert.Len(t, companies.Items, 2)
	products := f.cols.Products.Load(ctx)
	require.Len(t, products.Items, 1)
	assert.Equal(t, "200", products.Items[0].ID)
}

func TestReadUnknownHandle(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Read("not-a-ulid")
	assert.ErrorIs(t, err, ErrInvalidHandle)

	_, err = f.svc.Read(ulid.Make().String())
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, f.svc.Restore(context.Background(), ulid.Make().String()), ErrNotFound)
}
