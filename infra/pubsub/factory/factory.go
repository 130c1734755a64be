// Package factory builds watermill AMQP publishers and subscribers against a
// shared broker connection configuration.
package factory

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
)

// ExchangeConfig names the AMQP exchange a publisher or subscriber targets.
type ExchangeConfig struct {
	Name    string
	Type    string
	Durable bool
}

// PublisherConfig describes one outgoing pipe. The watermill topic becomes
// the AMQP routing key on the configured exchange.
type PublisherConfig struct {
	Exchange ExchangeConfig
}

// SubscriberConfig describes one consumer queue bound to an exchange with a
// routing-key pattern (the watermill topic).
type SubscriberConfig struct {
	Queue    string
	Exchange ExchangeConfig
}

// Factory is the broker-facing constructor used by the pubsub adapters.
type Factory interface {
	BuildPublisher(cfg *PublisherConfig) (message.Publisher, error)
	BuildSubscriber(cfg *SubscriberConfig) (message.Subscriber, error)
}

type amqpFactory struct {
	uri    string
	logger watermill.LoggerAdapter
}

func New(uri string, logger watermill.LoggerAdapter) Factory {
	return &amqpFactory{uri: uri, logger: logger}
}

func (f *amqpFactory) BuildPublisher(cfg *PublisherConfig) (message.Publisher, error) {
	if cfg == nil || cfg.Exchange.Name == "" {
		return nil, fmt.Errorf("pubsub factory: publisher requires an exchange name")
	}

	c := amqp.NewDurablePubSubConfig(f.uri, nil)
	c.Exchange = amqp.ExchangeConfig{
		GenerateName: func(string) string { return cfg.Exchange.Name },
		Type:         cfg.Exchange.Type,
		Durable:      cfg.Exchange.Durable,
	}
	// Topic-exchange semantics: the watermill topic travels as routing key.
	c.Publish.GenerateRoutingKey = func(topic string) string { return topic }

	return amqp.NewPublisher(c, f.logger)
}

func (f *amqpFactory) BuildSubscriber(cfg *SubscriberConfig) (message.Subscriber, error) {
	if cfg == nil || cfg.Queue == "" {
		return nil, fmt.Errorf("pubsub factory: subscriber requires a queue name")
	}

	c := amqp.NewDurablePubSubConfig(f.uri, amqp.GenerateQueueNameConstant(cfg.Queue))
	c.Exchange = amqp.ExchangeConfig{
		GenerateName: func(string) string { return cfg.Exchange.Name },
		Type:         cfg.Exchange.Type,
		Durable:      cfg.Exchange.Durable,
	}
	// Bind the queue with the watermill topic as binding key so '#' and '*'
	// patterns work the AMQP way.
	c.QueueBind.GenerateRoutingKey = func(topic string) string { return topic }

	return amqp.NewSubscriber(c, f.logger)
}
