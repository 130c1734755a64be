package registry

import (
	"context"
	"log/slog"

	"github.com/procurex/order-relay/config"
	"go.uber.org/fx"
)

var Module = fx.Module("registry",
	fx.Provide(
		func(cfg *config.Config, logger *slog.Logger) *Registry {
			return NewRegistry(logger,
				WithQueueCapacity(cfg.Orders.QueueCapacity),
				WithOrderTTL(cfg.Orders.Expiry),
				WithSweepInterval(cfg.Orders.SweepInterval),
			)
		},
		func(r *Registry) Registrar { return r },
		NewSweeper,
	),
	fx.Invoke(func(lc fx.Lifecycle, sweeper *Sweeper) {
		ctx, cancel := context.WithCancel(context.Background())
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go sweeper.Run(ctx)
				return nil
			},
			OnStop: func(context.Context) error {
				cancel()
				return nil
			},
		})
	}),
)
