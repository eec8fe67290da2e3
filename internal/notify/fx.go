package notify

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("notify",
	fx.Provide(NewSink),
	fx.Provide(NewDispatcher),
	fx.Invoke(runDispatcher),
)

// NewSink returns the drop-all backend. Platform adapters decorate
// their own Sink in at the app root; the dispatcher wraps whichever
// backend is bound.
func NewSink() Sink {
	return &NoOpSink{}
}

func runDispatcher(lc fx.Lifecycle, dispatcher *AsyncDispatcher) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go dispatcher.RunForever(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
