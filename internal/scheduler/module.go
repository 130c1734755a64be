package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/procurex/order-relay/config"
	"go.uber.org/fx"
)

var Module = fx.Module("scheduler",
	fx.Provide(
		func(cfg *config.Config, logger *slog.Logger) *Scheduler {
			return NewScheduler(cfg.Scheduler.MaxConcurrentTasks, logger)
		},
	),
	fx.Invoke(func(lc fx.Lifecycle, s *Scheduler, cfg *config.Config) {
		ctx, cancel := context.WithCancel(context.Background())
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				// Periodic outcome aging keeps the lookup map bounded.
				go func() {
					ticker := time.NewTicker(cfg.Scheduler.OutcomeRetention)
					defer ticker.Stop()
					for {
						select {
						case <-ctx.Done():
							return
						case <-ticker.C:
							s.CleanupOlderThan(cfg.Scheduler.OutcomeRetention)
						}
					}
				}()
				return nil
			},
			OnStop: func(context.Context) error {
				cancel()
				s.Shutdown()
				return nil
			},
		})
	}),
)
