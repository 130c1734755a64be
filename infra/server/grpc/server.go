// Package grpc wraps the gRPC listener with the interceptor chain every role
// shares: panic recovery, request logging, session extraction, OTel stats.
package grpc

import (
	"context"
	"log/slog"
	"net"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/procurex/order-relay/config"
	"github.com/procurex/order-relay/infra/server/grpc/interceptors"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	googlegrpc "google.golang.org/grpc"
)

type Server struct {
	Server *googlegrpc.Server
	addr   string
	logger *slog.Logger
}

func NewServer(cfg *config.Config, logger *slog.Logger) *Server {
	l := interceptors.InterceptorLogger(logger)

	srv := googlegrpc.NewServer(
		googlegrpc.StatsHandler(otelgrpc.NewServerHandler()),
		googlegrpc.ChainUnaryInterceptor(
			recovery.UnaryServerInterceptor(),
			logging.UnaryServerInterceptor(l),
			interceptors.NewUnarySessionInterceptor(),
		),
		googlegrpc.ChainStreamInterceptor(
			recovery.StreamServerInterceptor(),
			logging.StreamServerInterceptor(l),
			interceptors.NewStreamSessionInterceptor(),
		),
	)

	return &Server{
		Server: srv,
		addr:   cfg.GRPC.Addr,
		logger: logger.With(slog.String("component", "grpc-server")),
	}
}

// Start binds the listener and serves in the background. A bind failure is a
// startup failure and is returned synchronously.
func (s *Server) Start(_ context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	go func() {
		s.logger.Info("grpc server listening", slog.String("addr", s.addr))
		if err := s.Server.Serve(lis); err != nil {
			s.logger.Error("grpc server stopped", slog.Any("err", err))
		}
	}()
	return nil
}

// Stop drains in-flight RPCs before returning.
func (s *Server) Stop(_ context.Context) error {
	s.Server.GracefulStop()
	return nil
}
