package service

import (
	"context"
	"log/slog"

	"github.com/procurex/order-relay/infra/client/persistence"
	"github.com/procurex/order-relay/internal/domain/registry"
)

// NewExpireHook builds the sweeper callback: when an order passes its
// deadline the persistence facade pauses every proposal. The active stream,
// if any, emits its own terminal frame from its emit loop; the hook only
// owns the durable side.
func NewExpireHook(updater ProposalUpdater, logger *slog.Logger) registry.ExpireFunc {
	log := logger.With(slog.String("component", "expire-hook"))

	return func(ctx context.Context, cell *registry.OrderCell) {
		_, err := updater.Apply(ctx, persistence.UpdateRequest{
			Mode:    persistence.ModeOrderPaused,
			OrderID: cell.OrderID(),
		})
		if err != nil {
			log.Warn("pause-on-expiry persistence update failed",
				slog.String("order_id", cell.OrderID()),
				slog.Any("err", err),
			)
		}
	}
}
