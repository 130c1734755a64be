// Package listener consumes buyer-facing bus traffic and feeds the local
// watcher hub. It is the requestor's only inbound AMQP surface.
package listener

import (
	"context"
	"encoding/json"
	"runtime/debug"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/procurex/order-relay/internal/requestor/feed"
)

// FeedHandler is the functional signature of one bus listener. The returned
// event, when non-nil, is broadcast to the order's watchers.
type FeedHandler[T any] func(ctx context.Context, orderID, key string, payload *T) (*feed.Event, error)

// Bind connects watermill to a feed handler: panic recovery, locality
// filtering, decoding, then broadcast.
func Bind[T any](h *BusHandler, fn FeedHandler[T]) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error("listener panic recovered",
					"err", r,
					"stack", string(debug.Stack()),
					"msg_id", msg.UUID)
			}
		}()

		orderID := msg.Metadata.Get("order_id")
		if orderID == "" {
			h.logger.Warn("message without order_id dropped", "msg_id", msg.UUID)
			return nil // ack, nothing to route
		}

		// Locality: only this node's watchers matter. Messages for orders
		// watched elsewhere (or nowhere) are acked untouched.
		if !h.hub.HasWatchers(orderID) {
			return nil
		}

		payload := new(T)
		if err := json.Unmarshal(msg.Payload, payload); err != nil {
			h.logger.Error("payload decode failed", "err", err, "msg_id", msg.UUID)
			return nil // ack, poison protection
		}

		ev, err := fn(msg.Context(), orderID, msg.Metadata.Get("key"), payload)
		if err != nil {
			return err // nack, retry policy takes over
		}
		if ev == nil {
			return nil
		}

		h.hub.Broadcast(*ev)
		return nil
	}
}
