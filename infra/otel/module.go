// Package otel wires the OpenTelemetry SDK: a tracer provider registered
// globally so the otelgrpc stats handlers on servers and clients pick it up.
package otel

import (
	"context"

	"github.com/procurex/order-relay/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/fx"
)

func NewTracerProvider(cfg *config.Config) *sdktrace.TracerProvider {
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.Service.Name),
		attribute.String("service.component", "order-relay"),
	)
	return sdktrace.NewTracerProvider(sdktrace.WithResource(res))
}

var Module = fx.Module("otel",
	fx.Provide(NewTracerProvider),
	fx.Invoke(func(lc fx.Lifecycle, tp *sdktrace.TracerProvider) {
		otel.SetTracerProvider(tp)
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return tp.Shutdown(ctx)
			},
		})
	}),
)
