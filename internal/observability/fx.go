package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/folio/internal/config"
	"github.com/smallbiznis/folio/internal/observability/logger"
	"github.com/smallbiznis/folio/internal/observability/metrics"
	"github.com/smallbiznis/folio/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		provideLoggerConfig,
		logger.New,
		metrics.NewRegistry,
		func(reg *prometheus.Registry) prometheus.Registerer { return reg },
		func(reg *prometheus.Registry) prometheus.Gatherer { return reg },
		metrics.New,
		provideOTLPMetricsConfig,
		metrics.NewMeterProvider,
		metrics.NewInvoiceEvents,
		provideTracingConfig,
		tracing.NewProvider,
	),
	fx.Invoke(ensureTracingProvider),
)

func ensureTracingProvider(_ *sdktrace.TracerProvider) {}

func provideLoggerConfig(cfg config.Config) logger.Config {
	return logger.Config{
		ServiceName:         cfg.AppName,
		Environment:         cfg.Environment,
		Version:             cfg.AppVersion,
		Level:               cfg.LogLevel,
		Format:              cfg.LogFormat,
		Debug:               cfg.Debug(),
		IncludeCaller:       cfg.Debug(),
		IncludeStackOnError: cfg.Debug(),
	}
}

func provideTracingConfig(cfg config.Config) tracing.Config {
	return tracing.Config{
		Enabled:          cfg.OTel.Enabled,
		ServiceName:      cfg.AppName,
		ServiceVersion:   cfg.AppVersion,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.OTel.Endpoint,
		ExporterProtocol: cfg.OTel.Protocol,
		Insecure:         cfg.OTel.Insecure,
		SamplingRatio:    cfg.OTel.SampleRatio,
	}
}

func provideOTLPMetricsConfig(cfg config.Config) metrics.OTLPConfig {
	return metrics.OTLPConfig{
		Enabled:          cfg.OTel.Enabled,
		ExporterEndpoint: cfg.OTel.Endpoint,
		ExporterProtocol: cfg.OTel.Protocol,
		Insecure:         cfg.OTel.Insecure,
	}
}
