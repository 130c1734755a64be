package cmd

import (
	"log/slog"
	"os"

	"github.com/procurex/order-relay/config"
	clientdi "github.com/procurex/order-relay/infra/client/di"
	"github.com/procurex/order-relay/infra/otel"
	infrapubsub "github.com/procurex/order-relay/infra/pubsub"
	grpcsrv "github.com/procurex/order-relay/infra/server/grpc"
	httpsrv "github.com/procurex/order-relay/infra/server/http"
	pubsubadapter "github.com/procurex/order-relay/internal/adapter/pubsub"
	"github.com/procurex/order-relay/internal/domain/registry"
	procgrpc "github.com/procurex/order-relay/internal/processor/handler/grpc"
	prochttp "github.com/procurex/order-relay/internal/processor/handler/http"
	procservice "github.com/procurex/order-relay/internal/processor/service"
	"github.com/procurex/order-relay/internal/requestor/feed"
	reqhttp "github.com/procurex/order-relay/internal/requestor/handler/http"
	"github.com/procurex/order-relay/internal/requestor/listener"
	"github.com/procurex/order-relay/internal/requestor/stream"
	"github.com/procurex/order-relay/internal/requestor/tracker"
	"github.com/procurex/order-relay/internal/scheduler"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.uber.org/fx"
)

// ProvideLogger builds the application logger. The level is backed by the
// config LevelVar so file-watch reloads retune verbosity live.
func ProvideLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler
	if cfg.Log.OTel {
		handler = otelslog.NewHandler(cfg.Service.Name)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LevelVar})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// NewProcessorApp assembles the seller-side role: order registry, sweeper,
// seller selection, the stream server, and the proposal ingress.
func NewProcessorApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLogger,
			infrapubsub.NewWatermillLogger,
			infrapubsub.NewProvider,
		),
		otel.Module,
		clientdi.Module,
		pubsubadapter.Module,
		registry.Module,
		scheduler.Module,
		procservice.Module,
		procgrpc.Module,
		prochttp.Module,
		grpcsrv.Module,
		httpsrv.Module,
	)
}

// NewRequestorApp assembles the buyer-side role: order tracking, the stream
// consumer, the buyer feed, and the order ingress.
func NewRequestorApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLogger,
			infrapubsub.NewWatermillLogger,
			infrapubsub.NewProvider,
		),
		otel.Module,
		clientdi.Module,
		pubsubadapter.Module,
		scheduler.Module,
		tracker.Module,
		feed.Module,
		stream.Module,
		listener.Module,
		reqhttp.Module,
		httpsrv.Module,
	)
}
