package feed

import (
	"log/slog"

	"go.uber.org/fx"
)

var Module = fx.Module("feed",
	fx.Provide(
		func(logger *slog.Logger) *Hub {
			return NewHub(logger.With(slog.String("component", "feed-hub")))
		},
		func(logger *slog.Logger, hub *Hub) *WSHandler {
			return NewWSHandler(logger.With(slog.String("component", "feed-ws")), hub)
		},
		NewLPHandler,
	),
)
