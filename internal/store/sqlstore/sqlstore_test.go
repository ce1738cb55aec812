package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/folio/internal/clock"
	productdomain "github.com/smallbiznis/folio/internal/product/domain"
	"github.com/smallbiznis/folio/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, time.October, 16, 9, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Path: filepath.Join(t.TempDir(), "folio.db")}, clock.NewFakeClock(testNow), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleProducts() []productdomain.Product {
	return []productdomain.Product{
		{ID: "1843021011205402800", Name: "Consulting", Unit: "hour", UnitPrice: decimal.RequireFromString("1000"), TaxRate: decimal.NewFromInt(25), IsActive: true, CreatedAt: testNow},
		{ID: "1843021011205402801", Name: "Workshop", Unit: "day", UnitPrice: decimal.RequireFromString("7500.50"), IsActive: true, UsageCount: 3, CreatedAt: testNow},
	}
}

func TestRoundTrip(t *testing.T) {
	s := newTestStore(t)
	col := store.NewCollection[productdomain.Product](s, store.KindProducts, store.WithClock[productdomain.Product](clock.NewFakeClock(testNow)))
	ctx := context.Background()

	first := col.Load(ctx)
	assert.Equal(t, store.SourceSeedFirstRun, first.Source)
	assert.Zero(t, first.Version)

	version, err := col.Save(ctx, sampleProducts(), first.Version)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	loaded := col.Load(ctx)
	require.NoError(t, loaded.Diagnostic)
	assert.Equal(t, store.SourceStored, loaded.Source)
	require.Len(t, loaded.Items, 2)
	assert.Equal(t, "1843021011205402800", loaded.Items[0].ID)
	assert.True(t, loaded.Items[1].UnitPrice.Equal(decimal.RequireFromString("7500.50")))

	env, err := s.Read(ctx, store.KindProducts)
	require.NoError(t, err)
	assert.Equal(t, store.SchemaVersion, env.SchemaVersion)
	assert.True(t, env.SavedAt.Equal(testNow))
}

func TestStaleWriteRejected(t *testing.T) {
	s := newTestStore(t)
	col := store.NewCollection[productdomain.Product](s, store.KindProducts)
	ctx := context.Background()

	_, err := col.Save(ctx, sampleProducts(), 0)
	require.NoError(t, err)
	_, err = col.Save(ctx, sampleProducts()[:1], 1)
	require.NoError(t, err)

	_, err = col.Save(ctx, nil, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrConcurrentModification))

	var stale *store.StaleWriteError
	require.ErrorAs(t, err, &stale)
	assert.Equal(t, int64(2), stale.Actual)

	loaded := col.Load(ctx)
	assert.Len(t, loaded.Items, 1)
}

func TestWriteLosingRaceIsStale(t *testing.T) {
	s := newTestStore(t)
	col := store.NewCollection[productdomain.Product](s, store.KindProducts)
	ctx := context.Background()

	_, err := col.Save(ctx, sampleProducts(), 0)
	require.NoError(t, err)
	observed, err := s.find(s.db.WithContext(ctx), store.KindProducts)
	require.NoError(t, err)

	// a concurrent writer commits after observed was read
	_, err = col.Save(ctx, sampleProducts()[:1], 1)
	require.NoError(t, err)

	loser := observed
	loser.Version = observed.Version + 1
	loser.Items = []byte("[]")
	err = s.swap(s.db.WithContext(ctx), observed.Version, loser, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrConcurrentModification))

	loaded := col.Load(ctx)
	assert.Equal(t, int64(2), loaded.Version)
	assert.Len(t, loaded.Items, 1, "the winning save is kept")
}

func TestCorruptRowFallsBackAndQuarantines(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.db.Exec(
		"INSERT INTO collections (kind, schema_version, version, saved_at, items) VALUES (?, ?, ?, ?, ?)",
		"products", 3, 4, testNow, "{not json",
	).Error)

	seeded := []productdomain.Product{{ID: "seed-1", Name: "Sample"}}
	col := store.NewCollection[productdomain.Product](s, store.KindProducts,
		store.WithSeed(func(time.Time) []productdomain.Product { return seeded }))

	loaded := col.Load(ctx)
	assert.Equal(t, store.SourceSeedRecovered, loaded.Source)
	assert.True(t, store.IsDecodeError(loaded.Diagnostic))
	assert.Equal(t, seeded, loaded.Items)
	assert.Contains(t, loaded.QuarantinePath, "collection_quarantine/")

	var count int64
	require.NoError(t, s.db.Model(&quarantineRow{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	version, err := col.Save(ctx, loaded.Items, loaded.Version)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{}, nil, nil)
	assert.Error(t, err)
}
