// Package pubsub exposes the message-bus connection to the rest of the
// application through a small provider seam, so adapters and tests never
// construct broker clients directly.
package pubsub

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/procurex/order-relay/config"
	"github.com/procurex/order-relay/infra/pubsub/factory"
)

// Provider hands out the broker factory.
type Provider interface {
	GetFactory() factory.Factory
}

type amqpProvider struct {
	factory factory.Factory
}

func NewProvider(cfg *config.Config, wmLogger watermill.LoggerAdapter) Provider {
	return &amqpProvider{factory: factory.New(cfg.AMQP.URI, wmLogger)}
}

func (p *amqpProvider) GetFactory() factory.Factory { return p.factory }

// NewWatermillLogger bridges watermill's logging onto the application slog
// handler.
func NewWatermillLogger(logger *slog.Logger) watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logger.With(slog.String("component", "watermill")))
}
