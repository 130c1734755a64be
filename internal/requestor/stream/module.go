package stream

import (
	"context"
	"log/slog"

	orderspb "github.com/procurex/order-relay/gen/go/orders/v1"
	"github.com/procurex/order-relay/config"
	"github.com/procurex/order-relay/internal/adapter/pubsub"
	"github.com/procurex/order-relay/internal/requestor/tracker"
	"github.com/procurex/order-relay/internal/scheduler"
	"go.uber.org/fx"
	"google.golang.org/grpc"
)

var Module = fx.Module("stream",
	fx.Provide(
		NewClientConn,
		NewOrderEventsClient,
		func(logger *slog.Logger, client orderspb.OrderEventsClient, notifier pubsub.Notifier, tr *tracker.Tracker, tasks *scheduler.Scheduler, cfg *config.Config) *Consumer {
			return NewConsumer(
				logger.With(slog.String("component", "stream-consumer")),
				client, notifier, tr, tasks, cfg,
			)
		},
	),
	fx.Invoke(func(lc fx.Lifecycle, conn *grpc.ClientConn) {
		lc.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				return conn.Close()
			},
		})
	}),
)
