// Package stream holds the requestor's consumer of processor order streams:
// the gRPC client, the per-order consume loop, and its retry policy.
package stream

import (
	orderspb "github.com/procurex/order-relay/gen/go/orders/v1"
	"github.com/procurex/order-relay/config"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// NewClientConn dials the processor. grpc.NewClient connects lazily, so a
// processor that is down at startup only surfaces when the first stream opens.
func NewClientConn(cfg *config.Config) (*grpc.ClientConn, error) {
	return grpc.NewClient(cfg.Stream.ProcessorAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
}

func NewOrderEventsClient(conn *grpc.ClientConn) orderspb.OrderEventsClient {
	return orderspb.NewOrderEventsClient(conn)
}
