package pubsub

import (
	"github.com/ThreeDotsLabs/watermill/message"
	infrapubsub "github.com/procurex/order-relay/infra/pubsub"
	"github.com/procurex/order-relay/infra/pubsub/factory"
)

type PublisherProvider struct {
	factory factory.Factory
}

func NewPublisherProvider(p infrapubsub.Provider) *PublisherProvider {
	return &PublisherProvider{factory: p.GetFactory()}
}

func (pp *PublisherProvider) Build(exchange string) (message.Publisher, error) {
	return pp.factory.BuildPublisher(&factory.PublisherConfig{
		Exchange: factory.ExchangeConfig{
			Name:    exchange,
			Type:    "topic",
			Durable: true,
		},
	})
}

type SubscriberProvider struct {
	factory factory.Factory
}

func NewSubscriberProvider(p infrapubsub.Provider) *SubscriberProvider {
	return &SubscriberProvider{factory: p.GetFactory()}
}

func (sp *SubscriberProvider) Build(queue, exchange string) (message.Subscriber, error) {
	return sp.factory.BuildSubscriber(&factory.SubscriberConfig{
		Queue: queue,
		Exchange: factory.ExchangeConfig{
			Name:    exchange,
			Type:    "topic",
			Durable: true,
		},
	})
}
