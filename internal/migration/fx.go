package migration

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/folio/internal/clock"
	"github.com/smallbiznis/folio/internal/config"
	"github.com/smallbiznis/folio/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Backend store.Backend
	Config  config.Config
	Clock   clock.Clock
	Log     *zap.Logger
	Node    *snowflake.Node
}

func New(p Params) *Runner {
	return NewRunner(p.Backend, p.Config.DataDir, p.Config.AppVersion, p.Clock, p.Log, p.Node)
}

// Module migrates stored data before anything else reads it.
var Module = fx.Module("migrations",
	fx.Provide(New),
	fx.Invoke(func(r *Runner, cfg config.Config) error {
		timeout := 4 * cfg.IOTimeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_, err := r.Run(ctx)
		return err
	}),
)
