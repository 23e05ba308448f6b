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

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	ordersPriced     metric.Int64Counter
	linesPriced      metric.Int64Counter
	discountsApplied metric.Int64Counter
	catalogFailOpen  metric.Int64Counter
	usageExhausted   metric.Int64Counter
	sweepRuns        metric.Int64Counter
	eventsPublished  metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "pricing"
	}
	meter := provider.Meter(name)

	ordersPriced, err := meter.Int64Counter("pricing_orders_priced_total")
	if err != nil {
		return nil, err
	}
	linesPriced, err := meter.Int64Counter("pricing_lines_priced_total")
	if err != nil {
		return nil, err
	}
	discountsApplied, err := meter.Int64Counter("pricing_discounts_applied_total")
	if err != nil {
		return nil, err
	}
	catalogFailOpen, err := meter.Int64Counter("pricing_catalog_fail_open_total")
	if err != nil {
		return nil, err
	}
	usageExhausted, err := meter.Int64Counter("pricing_usage_exhausted_at_commit_total")
	if err != nil {
		return nil, err
	}
	sweepRuns, err := meter.Int64Counter("pricing_sweep_runs_total")
	if err != nil {
		return nil, err
	}
	eventsPublished, err := meter.Int64Counter("pricing_events_published_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		ordersPriced:     ordersPriced,
		linesPriced:      linesPriced,
		discountsApplied: discountsApplied,
		catalogFailOpen:  catalogFailOpen,
		usageExhausted:   usageExhausted,
		sweepRuns:        sweepRuns,
		eventsPublished:  eventsPublished,
	}, nil
}

// RecordOrderPriced increments the priced-order count.
func (m *Metrics) RecordOrderPriced(ctx context.Context, mode string, lines int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("mode", strings.TrimSpace(mode)))
	m.ordersPriced.Add(ctx, 1, attrs)
	m.linesPriced.Add(ctx, int64(lines), attrs)
}

// RecordDiscountApplied increments the applied-discount count.
func (m *Metrics) RecordDiscountApplied(ctx context.Context, discountType string, stackable bool) {
	if m == nil {
		return
	}
	m.discountsApplied.Add(ctx, 1, metric.WithAttributes(
		attribute.String("discount_type", strings.TrimSpace(discountType)),
		attribute.Bool("stackable", stackable),
	))
}

// RecordCatalogFailOpen counts pricing runs degraded to no-discount mode.
func (m *Metrics) RecordCatalogFailOpen(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.catalogFailOpen.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", strings.TrimSpace(reason)),
	))
}

// RecordUsageExhaustedAtCommit counts discounts dropped at commit time.
func (m *Metrics) RecordUsageExhaustedAtCommit(ctx context.Context) {
	if m == nil {
		return
	}
	m.usageExhausted.Add(ctx, 1)
}

// RecordSweepRun counts scheduler sweep executions.
func (m *Metrics) RecordSweepRun(ctx context.Context, job string, failed bool) {
	if m == nil {
		return
	}
	m.sweepRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("job", strings.TrimSpace(job)),
		attribute.Bool("failed", failed),
	))
}

// RecordEventsPublished counts outbox events handed to the notifier.
func (m *Metrics) RecordEventsPublished(ctx context.Context, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.eventsPublished.Add(ctx, int64(count))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}
