package housekeeping

import (
	"context"

	"github.com/guildpoint/merit/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("housekeeping",
	fx.Provide(New),
	fx.Invoke(runWorker),
)

// runWorker starts the loop inside the monolith. Cloud deployments run
// the worker as its own process instead (apps/housekeeper), so the gate
// keeps the API pods from sweeping too.
func runWorker(lc fx.Lifecycle, cfg config.Config, w *Worker) {
	if cfg.IsCloud() {
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
