package http

import (
	"log/slog"

	orderspb "github.com/procurex/order-relay/gen/go/orders/v1"
	"github.com/procurex/order-relay/infra/client/persistence"
	server "github.com/procurex/order-relay/infra/server/http"
	"github.com/procurex/order-relay/internal/adapter/pubsub"
	"github.com/procurex/order-relay/internal/requestor/feed"
	"github.com/procurex/order-relay/internal/requestor/stream"
	"github.com/procurex/order-relay/internal/requestor/tracker"
	"go.uber.org/fx"
)

var Module = fx.Module("handler.http",
	fx.Provide(
		func(c *persistence.Client) OrderStore { return c },
		func(logger *slog.Logger, tr *tracker.Tracker, consumer *stream.Consumer, store OrderStore, rpc orderspb.OrderEventsClient, notifier pubsub.Notifier) *OrderHandler {
			return NewOrderHandler(
				logger.With(slog.String("component", "order-handler")),
				tr, consumer, store, rpc, notifier,
			)
		},
	),
	fx.Invoke(func(srv *server.Server, orders *OrderHandler, ws *feed.WSHandler, lp *feed.LPHandler) {
		srv.Router.Post("/orders/initiate", orders.Initiate)
		srv.Router.Post("/orders/{order_req_id}/followup", orders.FollowUp)
		srv.Router.Put("/orders/finalize/{order_req_id}", orders.Finalize)
		srv.Router.Put("/orders/pause/{order_req_id}", orders.Pause)
		srv.Router.Get("/orders/{order_req_id}/feed", ws.ServeHTTP)
		srv.Router.Get("/orders/{order_req_id}/poll", lp.Poll)
	}),
)
