package main

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/folio/internal/backup"
	"github.com/smallbiznis/folio/internal/clock"
	"github.com/smallbiznis/folio/internal/company"
	"github.com/smallbiznis/folio/internal/config"
	"github.com/smallbiznis/folio/internal/invoice"
	"github.com/smallbiznis/folio/internal/notify"
	"github.com/smallbiznis/folio/internal/observability"
	"github.com/smallbiznis/folio/internal/product"
	"github.com/smallbiznis/folio/internal/providers/email"
	"github.com/smallbiznis/folio/internal/providers/pdf"
	"github.com/smallbiznis/folio/internal/ratelimit"
	"github.com/smallbiznis/folio/internal/render"
	"github.com/smallbiznis/folio/internal/repository"
	"go.uber.org/fx"
)

const stopTimeout = 15 * time.Second

// coreModules is everything except migrations and the HTTP server.
func coreModules() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		clock.Module,
		fx.Provide(RegisterSnowflake),
		repository.Module,
		company.Module,
		product.Module,
		email.Module,
		notify.Module,
		invoice.Module,
		render.Module,
		pdf.Module,
		backup.Module,
		ratelimit.Module,
	)
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}

// startApp builds a short-lived application for a one-shot command and
// fills targets from the container.
func startApp(ctx context.Context, opts fx.Option, targets ...any) (*fx.App, error) {
	app := fx.New(opts, fx.NopLogger, fx.Populate(targets...))
	if err := app.Err(); err != nil {
		return nil, err
	}
	if err := app.Start(ctx); err != nil {
		return nil, err
	}
	return app, nil
}

func stopApp(app *fx.App) {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	_ = app.Stop(ctx)
}
