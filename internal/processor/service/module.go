package service

import (
	"log/slog"

	"github.com/procurex/order-relay/config"
	"github.com/procurex/order-relay/infra/client/distance"
	"github.com/procurex/order-relay/infra/client/gchat"
	"github.com/procurex/order-relay/infra/client/persistence"
	"go.uber.org/fx"
)

var Module = fx.Module(
	"processor-service",

	fx.Provide(
		func(c *persistence.Client) PersistenceFacade { return c },
		func(c *distance.Client) DistanceOracle { return c },
		func(c *gchat.Client) ChatNotifier { return c },

		NewProposalUpdater,
		NewFollowUpService,
		NewExpireHook,

		func(facade PersistenceFacade, oracle DistanceOracle, cfg *config.Config, logger *slog.Logger) SellerSelector {
			return NewSellerSelector(
				facade,
				oracle,
				cfg.Selector.MaxSellers,
				cfg.Selector.FallbackDistanceKM,
				cfg.Selector.CacheSize,
				logger,
			)
		},
	),
)
