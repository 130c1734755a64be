package listener

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/procurex/order-relay/config"
	"github.com/procurex/order-relay/internal/adapter/pubsub"
	"github.com/procurex/order-relay/internal/requestor/feed"
	"go.uber.org/fx"
)

var Module = fx.Module("listener",
	fx.Provide(
		func(hub *feed.Hub, logger *slog.Logger, publisher message.Publisher, cfg *config.Config) *BusHandler {
			return NewBusHandler(
				hub,
				logger.With(slog.String("component", "buyer-feed")),
				publisher,
				cfg.AMQP.Exchange,
			)
		},
		NewWatermillRouter,
	),
	fx.Invoke(func(lc fx.Lifecycle, h *BusHandler, router *message.Router, subProvider *pubsub.SubscriberProvider, logger *slog.Logger) error {
		if err := h.RegisterHandlers(router, subProvider); err != nil {
			return err
		}

		lc.Append(fx.Hook{
			OnStart: func(_ context.Context) error {
				go func() {
					if err := router.Run(context.Background()); err != nil {
						logger.Error("bus router stopped", slog.Any("err", err))
					}
				}()
				return nil
			},
			OnStop: func(_ context.Context) error {
				return router.Close()
			},
		})
		return nil
	}),
)
