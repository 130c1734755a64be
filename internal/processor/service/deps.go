package service

import (
	"context"

	"github.com/procurex/order-relay/infra/client/persistence"
)

// PersistenceFacade is the slice of the remote facade the processor needs.
// Production wires infra/client/persistence; tests pass fakes.
type PersistenceFacade interface {
	Update(ctx context.Context, req persistence.UpdateRequest) (persistence.UpdateResponse, error)
	OrderContext(ctx context.Context, orderID string) (persistence.OrderContext, error)
	SellersByIndustry(ctx context.Context, industry string) ([]persistence.SellerRef, error)
}

// DistanceOracle measures the distance between two areas.
type DistanceOracle interface {
	BetweenKM(ctx context.Context, from, to string) (float64, error)
}

// ChatNotifier posts a human-facing message to the chat side channel.
type ChatNotifier interface {
	Notify(ctx context.Context, text string) bool
}
