package http

import (
	"log/slog"

	"github.com/procurex/order-relay/config"
	server "github.com/procurex/order-relay/infra/server/http"
	"github.com/procurex/order-relay/internal/adapter/pubsub"
	"github.com/procurex/order-relay/internal/domain/registry"
	"github.com/procurex/order-relay/internal/processor/service"
	"go.uber.org/fx"
)

var Module = fx.Module("handler.http",
	fx.Provide(
		func(logger *slog.Logger, cfg *config.Config, reg registry.Registrar, updater service.ProposalUpdater, notifier pubsub.Notifier) *ProposalHandler {
			return NewProposalHandler(
				logger.With(slog.String("component", "proposal-handler")),
				reg, updater, notifier, cfg.Orders.Expiry,
			)
		},
		NewStatsHandler,
	),
	fx.Invoke(func(srv *server.Server, proposals *ProposalHandler, stats *StatsHandler) {
		srv.Router.Post("/proposals/proposal-submissions", proposals.SubmitProposal)
		srv.Router.Post("/proposals/{proposal_id}/followup", proposals.ProposalFollowUp)
		srv.Router.Post("/proposals/edit-lock", proposals.EditLock)
		srv.Router.Get("/internal/stats", stats.Stats)
	}),
)
