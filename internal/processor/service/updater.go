package service

import (
	"context"
	"log/slog"

	"github.com/procurex/order-relay/infra/client/persistence"
	"github.com/procurex/order-relay/internal/adapter/pubsub"
)

// ProposalUpdater is the mode-dispatched write path against the persistence
// facade. Every caller goes through Apply so the failure contract lives in
// one place: on any facade error a PRP_FAILURES notification is emitted
// (best-effort) and the error propagates to the caller.
type ProposalUpdater interface {
	Apply(ctx context.Context, req persistence.UpdateRequest) (persistence.UpdateResponse, error)
}

type updater struct {
	facade   PersistenceFacade
	notifier pubsub.Notifier
	logger   *slog.Logger
}

func NewProposalUpdater(facade PersistenceFacade, notifier pubsub.Notifier, logger *slog.Logger) ProposalUpdater {
	return &updater{
		facade:   facade,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "proposal-updater")),
	}
}

func (u *updater) Apply(ctx context.Context, req persistence.UpdateRequest) (persistence.UpdateResponse, error) {
	res, err := u.facade.Update(ctx, req)
	if err != nil {
		u.logger.Error("proposal update failed",
			slog.String("mode", string(req.Mode)),
			slog.String("order_id", req.OrderID),
			slog.String("proposal_id", req.ProposalID),
			slog.Any("err", err),
		)
		u.notifier.Publish(ctx, pubsub.TopicPrpFailures, pubsub.KeyPrpUpdates, pubsub.Notification{
			OrderID: req.OrderID,
			Body:    "persistence update failed: mode=" + string(req.Mode),
		})
		return persistence.UpdateResponse{}, err
	}
	return res, nil
}
