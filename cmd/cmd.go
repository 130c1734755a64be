package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/procurex/order-relay/config"
	"github.com/procurex/order-relay/internal/monitor"
	"github.com/spf13/pflag"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
)

const ServiceName = "order-relay"

var version = "0.0.0"

func Run() error {
	app := &cli.App{
		Name:    ServiceName,
		Usage:   "Two-sided order coordination relay",
		Version: version,
		Commands: []*cli.Command{
			processorCmd(),
			requestorCmd(),
			monitorCmd(),
		},
	}

	return app.Run(os.Args)
}

func processorCmd() *cli.Command {
	return &cli.Command{
		Name:    "processor",
		Aliases: []string{"p"},
		Usage:   "Run the seller-side processor (gRPC streams, proposal ingress)",
		Flags:   daemonFlags(),
		Action: func(c *cli.Context) error {
			return runDaemon(c, NewProcessorApp)
		},
	}
}

func requestorCmd() *cli.Command {
	return &cli.Command{
		Name:    "requestor",
		Aliases: []string{"r"},
		Usage:   "Run the buyer-side requestor (stream consumer, order ingress)",
		Flags:   daemonFlags(),
		Action: func(c *cli.Context) error {
			return runDaemon(c, NewRequestorApp)
		},
	}
}

func monitorCmd() *cli.Command {
	return &cli.Command{
		Name:    "monitor",
		Aliases: []string{"m"},
		Usage:   "Render a live dashboard over a running relay",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "endpoint",
				Value: "http://localhost:8080/internal/stats",
				Usage: "Stats endpoint of the relay to watch",
			},
			&cli.DurationFlag{
				Name:  "refresh",
				Value: 3 * time.Second,
				Usage: "Refresh interval",
			},
		},
		Action: func(c *cli.Context) error {
			m := monitor.New(c.String("endpoint"), c.Duration("refresh"))

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return m.Run(ctx)
		},
	}
}

func daemonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config_file",
			Aliases: []string{"c"},
			Usage:   "Path to the configuration file",
		},
	}
}

func runDaemon(c *cli.Context, build func(*config.Config) *fx.App) error {
	flags := pflag.NewFlagSet(ServiceName, pflag.ContinueOnError)

	cfg, err := config.LoadConfig(c.String("config_file"), flags)
	if err != nil {
		return err
	}

	app := build(cfg)
	if err := app.Start(c.Context); err != nil {
		return err
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")
	return app.Stop(context.Background())
}
