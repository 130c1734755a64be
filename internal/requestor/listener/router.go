package listener

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/google/uuid"
	"github.com/procurex/order-relay/internal/adapter/pubsub"
	"github.com/procurex/order-relay/internal/requestor/feed"
)

const (
	buyerFeedQueue  = "order-relay.buyer-feed.v1"
	buyerFeedPoison = "order-relay.buyer-feed.v1.poison"
)

// BusHandler owns the buyer-side consumer pipeline.
type BusHandler struct {
	hub       *feed.Hub
	logger    *slog.Logger
	publisher message.Publisher
	exchange  string
}

func NewBusHandler(hub *feed.Hub, logger *slog.Logger, publisher message.Publisher, exchange string) *BusHandler {
	return &BusHandler{
		hub:       hub,
		logger:    logger,
		publisher: publisher,
		exchange:  exchange,
	}
}

func NewWatermillRouter(logger watermill.LoggerAdapter) (*message.Router, error) {
	return message.NewRouter(message.RouterConfig{}, logger)
}

// RegisterHandlers wires one handler per buyer topic, each on its own
// node-local queue so every running requestor sees the full feed.
func (h *BusHandler) RegisterHandlers(router *message.Router, subProvider *pubsub.SubscriberProvider) error {
	poison, err := middleware.PoisonQueue(h.publisher, buyerFeedPoison)
	if err != nil {
		return fmt.Errorf("poison queue setup: %w", err)
	}

	configs := []struct {
		name    string
		topic   pubsub.Topic
		handler message.NoPublishHandlerFunc
	}{
		{"ON_BUYER_NOTIFY", pubsub.TopicBuyerNotify, Bind(h, h.OnBuyerNotify)},
		{"ON_BUYER_FOLLOWUP", pubsub.TopicBuyerFollowUp, Bind(h, h.OnBuyerFollowUp)},
		{"ON_BUYER_ACK", pubsub.TopicBuyerAcknowledgements, Bind(h, h.OnBuyerAck)},
	}

	for _, c := range configs {
		instanceID := uuid.NewString()[:8]
		handlerQueue := fmt.Sprintf("%s.%s.%s", buyerFeedQueue, instanceID, c.name)

		sub, err := subProvider.Build(handlerQueue, h.exchange)
		if err != nil {
			return err
		}

		router.AddConsumerHandler(c.name, string(c.topic), sub, c.handler).AddMiddleware(
			TraceIDMiddleware,
			LoggingMiddleware(h.logger),
			NewRetryMiddleware().Middleware,
			poison,
			middleware.NewThrottle(100, time.Second).Middleware,
			middleware.Timeout(time.Second*30),
		)
	}

	h.logger.Info("buyer feed pipeline ready", "queue", buyerFeedQueue)
	return nil
}

// OnBuyerNotify turns a stream-derived notification into a feed event.
func (h *BusHandler) OnBuyerNotify(_ context.Context, orderID, key string, n *pubsub.Notification) (*feed.Event, error) {
	return &feed.Event{
		OrderID:    orderID,
		Kind:       key,
		Body:       n.Body,
		ReceivedAt: time.Now().UTC(),
	}, nil
}

// OnBuyerFollowUp surfaces follow-up confirmations to watchers.
func (h *BusHandler) OnBuyerFollowUp(_ context.Context, orderID, key string, n *pubsub.Notification) (*feed.Event, error) {
	return &feed.Event{
		OrderID:    orderID,
		Kind:       key,
		Body:       n.Body,
		ReceivedAt: time.Now().UTC(),
	}, nil
}

// OnBuyerAck surfaces initiate acknowledgements to watchers.
func (h *BusHandler) OnBuyerAck(_ context.Context, orderID, key string, n *pubsub.Notification) (*feed.Event, error) {
	return &feed.Event{
		OrderID:    orderID,
		Kind:       key,
		Body:       n.Body,
		ReceivedAt: time.Now().UTC(),
	}, nil
}
