package pubsub

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Topic is the closed set of bus destinations. The watermill topic travels
// as the AMQP routing key on the relay exchange.
type Topic string

const (
	TopicSellerAcknowledgements Topic = "SELLER_ACKNOWLEDGEMENTS"
	TopicSellerNotify           Topic = "SELLER_NOTIFY"
	TopicSellerFollowUp         Topic = "SELLER_FOLLOWUP"
	TopicPrpFailures            Topic = "PRP_FAILURES"
	TopicBuyerAcknowledgements  Topic = "BUYER_ACKNOWLEDGEMENTS"
	TopicBuyerNotify            Topic = "BUYER_NOTIFY"
	TopicBuyerFollowUp          Topic = "BUYER_FOLLOWUP"
	TopicReqFailures            Topic = "REQ_FAILURES"
)

// Key is the closed set of message kinds carried in metadata.
type Key string

const (
	KeyOrdSubmission Key = "ORD_SUBMISSION"
	KeyOrdUpdates    Key = "ORD_UPDATES"
	KeyPrpSubmission Key = "PRP_SUBMISSION"
	KeyPrpUpdates    Key = "PRP_UPDATES"
	KeyPrpRequest    Key = "PRP_REQUEST"
)

// Notification is the minimum payload every bus message carries.
type Notification struct {
	OrderID string `json:"order_id"`
	Session string `json:"session,omitempty"`
	Body    string `json:"body"`
}

// Notifier is the high-level contract for outgoing notifications. Publishing
// is best-effort: failures are logged and reported as a boolean so the order
// pipeline never stalls on a bus outage. Callers must not hold any per-order
// lock across Publish.
type Notifier interface {
	Publish(ctx context.Context, topic Topic, key Key, n Notification) bool
}

type busNotifier struct {
	publisher message.Publisher
	logger    *slog.Logger
}

func NewNotifier(publisher message.Publisher, logger *slog.Logger) Notifier {
	return &busNotifier{
		publisher: publisher,
		logger:    logger.With(slog.String("component", "notifier")),
	}
}

func (d *busNotifier) Publish(ctx context.Context, topic Topic, key Key, n Notification) bool {
	payload, err := json.Marshal(n)
	if err != nil {
		d.logger.Error("notification marshal failed",
			slog.String("topic", string(topic)),
			slog.Any("err", err),
		)
		return false
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("key", string(key))
	msg.Metadata.Set("order_id", n.OrderID)
	msg.SetContext(ctx)

	if err := d.publisher.Publish(string(topic), msg); err != nil {
		d.logger.Warn("notification publish failed",
			slog.String("topic", string(topic)),
			slog.String("key", string(key)),
			slog.String("order_id", n.OrderID),
			slog.Any("err", err),
		)
		return false
	}

	d.logger.Debug("notification published",
		slog.String("topic", string(topic)),
		slog.String("key", string(key)),
		slog.String("order_id", n.OrderID),
	)
	return true
}
