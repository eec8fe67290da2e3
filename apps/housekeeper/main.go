package main

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/guildpoint/merit/internal/audit"
	"github.com/guildpoint/merit/internal/authorization"
	"github.com/guildpoint/merit/internal/award"
	"github.com/guildpoint/merit/internal/cache"
	"github.com/guildpoint/merit/internal/clock"
	"github.com/guildpoint/merit/internal/cloudmetrics"
	"github.com/guildpoint/merit/internal/config"
	"github.com/guildpoint/merit/internal/housekeeping"
	"github.com/guildpoint/merit/internal/ledger"
	"github.com/guildpoint/merit/internal/notify"
	"github.com/guildpoint/merit/internal/observability"
	"github.com/guildpoint/merit/internal/providers"
	"github.com/guildpoint/merit/internal/rank"
	"github.com/guildpoint/merit/internal/ratelimit"
	"github.com/guildpoint/merit/internal/reconcile"
	"github.com/guildpoint/merit/internal/tenant"
	"github.com/guildpoint/merit/pkg/db"
	"go.uber.org/fx"
)

// Dedicated housekeeping process for hosted deployments: purges and the
// reconcile sweep, no HTTP router. A /metrics side port comes from
// cloudmetrics.RegisterInstrumentation.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		authorization.Module,
		audit.Module,
		cache.Module,
		tenant.Module,
		ledger.Module,
		rank.Module,
		award.Module,
		ratelimit.Module,
		providers.Module,
		notify.Module,
		reconcile.Module,
		cloudmetrics.Module,

		housekeeping.Module,
		fx.Invoke(cloudmetrics.RegisterInstrumentation),
		fx.Invoke(StartHousekeeper),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

// StartHousekeeper runs the loop in cloud mode, where the module's own
// invoke leaves it to this process. Outside cloud mode the module already
// started it and this is a no-op, so the loop never runs twice.
func StartHousekeeper(lc fx.Lifecycle, w *housekeeping.Worker, cfg config.Config) {
	if !cfg.IsCloud() {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go w.RunForever(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
