package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// OTLPConfig configures push export of OpenTelemetry metrics. The
// prometheus registry stays the pull surface either way.
type OTLPConfig struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	Insecure         bool
	Interval         time.Duration
}

// NewMeterProvider configures and registers the global meter provider.
// Database pool statistics from otelgorm and the invoice lifecycle
// counters flow through it.
func NewMeterProvider(lc fx.Lifecycle, cfg OTLPConfig, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg)
	if err != nil {
		return nil, err
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}
	log.Info("metrics export initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)
	return provider, nil
}

func newExporter(cfg OTLPConfig) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.ExporterProtocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if cfg.ExporterEndpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(cfg.ExporterEndpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{}
		if cfg.ExporterEndpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(cfg.ExporterEndpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", cfg.ExporterProtocol)
	}
}

// InvoiceEvents counts invoice lifecycle changes. A nil *InvoiceEvents is
// valid and records nothing.
type InvoiceEvents struct {
	created     metric.Int64Counter
	transitions metric.Int64Counter
}

func NewInvoiceEvents(provider metric.MeterProvider) (*InvoiceEvents, error) {
	meter := provider.Meter("github.com/smallbiznis/folio/invoice")

	created, err := meter.Int64Counter("folio.invoice.created",
		metric.WithDescription("Invoices created, by currency."))
	if err != nil {
		return nil, err
	}
	transitions, err := meter.Int64Counter("folio.invoice.transitions",
		metric.WithDescription("Explicit invoice status changes, by target status."))
	if err != nil {
		return nil, err
	}
	return &InvoiceEvents{created: created, transitions: transitions}, nil
}

func (e *InvoiceEvents) Created(ctx context.Context, currency string) {
	if e == nil {
		return
	}
	e.created.Add(ctx, 1, metric.WithAttributes(attribute.String("currency", currency)))
}

func (e *InvoiceEvents) Transitioned(ctx context.Context, from, to string) {
	if e == nil {
		return
	}
	e.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}
