// Package repository assembles the typed collections the services work on
// and selects the storage backend from configuration.
package repository

import (
	"context"
	"fmt"

	"github.com/smallbiznis/folio/internal/clock"
	companydomain "github.com/smallbiznis/folio/internal/company/domain"
	"github.com/smallbiznis/folio/internal/config"
	invoicedomain "github.com/smallbiznis/folio/internal/invoice/domain"
	"github.com/smallbiznis/folio/internal/observability/metrics"
	productdomain "github.com/smallbiznis/folio/internal/product/domain"
	"github.com/smallbiznis/folio/internal/seed"
	"github.com/smallbiznis/folio/internal/store"
	"github.com/smallbiznis/folio/internal/store/filestore"
	"github.com/smallbiznis/folio/internal/store/sqlstore"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Collections groups the three persisted collections.
type Collections struct {
	Companies *store.Collection[companydomain.Company]
	Products  *store.Collection[productdomain.Product]
	Invoices  *store.Collection[invoicedomain.Invoice]
}

type Params struct {
	fx.In

	Backend store.Backend
	Clock   clock.Clock
	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

// NewCollections binds each kind to its seed data.
func NewCollections(p Params) Collections {
	return Collections{
		Companies: store.NewCollection[companydomain.Company](p.Backend, store.KindCompanies,
			store.WithSeed[companydomain.Company](seed.Companies),
			store.WithClock[companydomain.Company](p.Clock),
			store.WithLogger[companydomain.Company](p.Log),
			store.WithMetrics[companydomain.Company](p.Metrics),
		),
		Products: store.NewCollection[productdomain.Product](p.Backend, store.KindProducts,
			store.WithSeed[productdomain.Product](seed.Products),
			store.WithClock[productdomain.Product](p.Clock),
			store.WithLogger[productdomain.Product](p.Log),
			store.WithMetrics[productdomain.Product](p.Metrics),
		),
		Invoices: store.NewCollection[invoicedomain.Invoice](p.Backend, store.KindInvoices,
			store.WithSeed[invoicedomain.Invoice](seed.Invoices),
			store.WithClock[invoicedomain.Invoice](p.Clock),
			store.WithLogger[invoicedomain.Invoice](p.Log),
			store.WithMetrics[invoicedomain.Invoice](p.Metrics),
		),
	}
}

// NewBackend opens the backend named by cfg.StoreBackend.
func NewBackend(lc fx.Lifecycle, cfg config.Config, clk clock.Clock, log *zap.Logger) (store.Backend, error) {
	switch cfg.StoreBackend {
	case config.BackendSQLite, config.BackendPostgres, config.BackendMySQL:
		s, err := sqlstore.Open(sqlstore.Config{
			Driver:    cfg.StoreBackend,
			Path:      sqlitePath(cfg),
			DSN:       sqlstore.DSN{Host: cfg.DB.Host, Port: cfg.DB.Port, Name: cfg.DB.Name, User: cfg.DB.User, Password: cfg.DB.Password, SSLMode: cfg.DB.SSLMode},
			IOTimeout: cfg.IOTimeout,
			Tracing:   cfg.DB.Tracing,
		}, clk, log)
		if err != nil {
			return nil, err
		}
		if lc != nil {
			lc.Append(fx.Hook{OnStop: func(context.Context) error { return s.Close() }})
		}
		log.Info("using sql store", zap.String("driver", cfg.StoreBackend))
		return s, nil
	case config.BackendFile, "":
		s, err := filestore.New(filestore.Config{Dir: cfg.DataDir, IOTimeout: cfg.IOTimeout}, clk, log)
		if err != nil {
			return nil, err
		}
		log.Info("using file store", zap.String("dir", cfg.DataDir))
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
	}
}

func sqlitePath(cfg config.Config) string {
	if cfg.StoreBackend == config.BackendSQLite {
		return cfg.SQLitePath
	}
	return ""
}

var Module = fx.Module("repository",
	fx.Provide(
		NewBackend,
		NewCollections,
	),
)
