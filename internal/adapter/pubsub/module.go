package pubsub

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/procurex/order-relay/config"
	"go.uber.org/fx"
)

var Module = fx.Module("pubsub-adapter",
	fx.Provide(
		NewPublisherProvider,
		NewSubscriberProvider,

		func(pp *PublisherProvider, cfg *config.Config) (message.Publisher, error) {
			return pp.Build(cfg.AMQP.Exchange)
		},
		func(pub message.Publisher, logger *slog.Logger) Notifier {
			return NewNotifier(pub, logger)
		},
	),
)
