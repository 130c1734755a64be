package clientdi

import (
	"github.com/procurex/order-relay/infra/client/distance"
	"github.com/procurex/order-relay/infra/client/gchat"
	"github.com/procurex/order-relay/infra/client/persistence"
	"go.uber.org/fx"
)

var Module = fx.Module(
	"outbound_clients",

	fx.Provide(
		persistence.New,
		distance.New,
		gchat.New,
	),
)
