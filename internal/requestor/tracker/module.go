package tracker

import (
	"log/slog"

	"go.uber.org/fx"
)

var Module = fx.Module("tracker",
	fx.Provide(func(logger *slog.Logger) *Tracker {
		return NewTracker(logger.With(slog.String("component", "tracker")))
	}),
)
