package grpc

import (
	"log/slog"

	orderspb "github.com/procurex/order-relay/gen/go/orders/v1"
	"github.com/procurex/order-relay/config"
	server "github.com/procurex/order-relay/infra/server/grpc"
	"github.com/procurex/order-relay/internal/adapter/pubsub"
	"github.com/procurex/order-relay/internal/domain/registry"
	"github.com/procurex/order-relay/internal/processor/service"
	"github.com/procurex/order-relay/internal/scheduler"
	"go.uber.org/fx"
)

var Module = fx.Module("handler.grpc",
	fx.Provide(func(
		logger *slog.Logger,
		cfg *config.Config,
		reg registry.Registrar,
		selector service.SellerSelector,
		updater service.ProposalUpdater,
		followups service.FollowUpApplier,
		notifier pubsub.Notifier,
		chat service.ChatNotifier,
		tasks *scheduler.Scheduler,
	) *OrderEventsService {
		return NewOrderEventsService(
			logger.With(slog.String("component", "order-events")),
			reg, selector, updater, followups, notifier, chat, tasks,
			cfg.Orders.Expiry, cfg.Orders.DequeueTimeout,
		)
	}),
	fx.Invoke(func(srv *server.Server, svc *OrderEventsService) {
		orderspb.RegisterOrderEventsServer(srv.Server, svc)
	}),
)
