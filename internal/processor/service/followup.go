package service

import (
	"context"
	"log/slog"
	"time"

	orderspb "github.com/procurex/order-relay/gen/go/orders/v1"
	"github.com/procurex/order-relay/infra/client/persistence"
	"github.com/procurex/order-relay/internal/domain/fault"
	"github.com/procurex/order-relay/internal/domain/model"
	"github.com/procurex/order-relay/internal/domain/registry"
)

// FollowUpApplier applies one order-level follow-up to an audience of
// proposals, producing a per-entry result in audience order.
type FollowUpApplier interface {
	Apply(ctx context.Context, orderID string, audience []string, orderFollowUpID string) ([]orderspb.FollowUpResult, error)
}

type followUpService struct {
	registry registry.Registrar
	updater  ProposalUpdater
	logger   *slog.Logger
}

func NewFollowUpService(reg registry.Registrar, updater ProposalUpdater, logger *slog.Logger) FollowUpApplier {
	return &followUpService{
		registry: reg,
		updater:  updater,
		logger:   logger.With(slog.String("component", "followup")),
	}
}

// Apply walks the audience sequentially. A parallel fan-out would contend on
// per-proposal locks and complicate the error story for no win at audience
// sizes this small.
//
// Per entry: an EDITLOCK proposal is skipped without mutation; otherwise a
// UserEdits write carries the follow-up id to persistence. Persistence
// failure maps to Failed, a recovered panic to Error.
func (s *followUpService) Apply(ctx context.Context, orderID string, audience []string, orderFollowUpID string) ([]orderspb.FollowUpResult, error) {
	cell, ok := s.registry.Get(orderID)
	if !ok {
		return nil, fault.New(fault.NotFound, "order %s not found", orderID)
	}

	results := make([]orderspb.FollowUpResult, 0, len(audience))
	for _, proposalID := range audience {
		results = append(results, s.applyOne(ctx, cell, proposalID, orderFollowUpID))
	}
	return results, nil
}

func (s *followUpService) applyOne(ctx context.Context, cell *registry.OrderCell, proposalID, orderFollowUpID string) (res orderspb.FollowUpResult) {
	res = orderspb.FollowUpResult{Audience: proposalID}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("follow-up apply panicked",
				slog.String("order_id", cell.OrderID()),
				slog.String("proposal_id", proposalID),
				slog.Any("panic", r),
			)
			res.Status = orderspb.FollowUpError
			res.AddedTime = ""
		}
	}()

	status, err := cell.ProposalStatus(proposalID)
	if err != nil {
		res.Status = orderspb.FollowUpFailed
		return res
	}

	if status == model.ProposalEditLock {
		// The seller is mid-edit; do not mutate, just report.
		res.Status = orderspb.FollowUpEditLock
		return res
	}

	_, err = s.updater.Apply(ctx, persistence.UpdateRequest{
		Mode:            persistence.ModeUserEdits,
		OrderID:         cell.OrderID(),
		ProposalID:      proposalID,
		OrderFollowUpID: orderFollowUpID,
	})
	if err != nil {
		res.Status = orderspb.FollowUpFailed
		return res
	}

	res.Status = orderspb.FollowUpUpdated
	res.AddedTime = time.Now().UTC().Format(time.RFC3339)
	return res
}
