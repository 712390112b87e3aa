package observability

import (
	"github.com/ledgerly/ledgerly/internal/observability/metrics"
	"github.com/ledgerly/ledgerly/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		NewTracingConfig,
		tracing.NewProvider,
		NewHTTPMetrics,
	),
	// Force the tracer provider so the exporter starts with the app.
	fx.Invoke(func(tp *sdktrace.TracerProvider) {}),
)

func NewTracingConfig(cfg Config) tracing.Config {
	return tracing.Config{
		Enabled:          cfg.OtelEnabled,
		ServiceName:      cfg.ServiceName,
		ServiceVersion:   cfg.Version,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.OtelExporterEndpoint,
		SamplingRatio:    cfg.OtelSamplingRatio,
	}
}

func NewHTTPMetrics(cfg Config) *metrics.HTTPMetrics {
	return metrics.NewHTTPMetrics(cfg.ServiceName)
}
