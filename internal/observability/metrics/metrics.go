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
	entitlementChecks metric.Int64Counter
	planDowngrades    metric.Int64Counter
	planUpdates       metric.Int64Counter
	rateLimitDenied   metric.Int64Counter
	sweepRuns         metric.Int64Counter
	sweepDuration     metric.Float64Histogram
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
		name = "bizplannaija"
	}
	meter := provider.Meter(name)

	entitlementChecks, err := meter.Int64Counter("bizplannaija_entitlement_checks_total",
		metric.WithDescription("Entitlement derivations by effective plan and outcome."))
	if err != nil {
		return nil, err
	}
	planDowngrades, err := meter.Int64Counter("bizplannaija_plan_downgrades_total",
		metric.WithDescription("Expired paid plans reset to free."))
	if err != nil {
		return nil, err
	}
	planUpdates, err := meter.Int64Counter("bizplannaija_plan_updates_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("bizplannaija_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	sweepRuns, err := meter.Int64Counter("bizplannaija_expiry_sweep_runs_total")
	if err != nil {
		return nil, err
	}
	sweepDuration, err := meter.Float64Histogram("bizplannaija_expiry_sweep_duration_seconds",
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		entitlementChecks: entitlementChecks,
		planDowngrades:    planDowngrades,
		planUpdates:       planUpdates,
		rateLimitDenied:   rateLimitDenied,
		sweepRuns:         sweepRuns,
		sweepDuration:     sweepDuration,
	}, nil
}

// RecordEntitlementCheck counts one derivation. outcome is active, expired or free.
func (m *Metrics) RecordEntitlementCheck(ctx context.Context, plan, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("plan", strings.TrimSpace(plan)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.entitlementChecks.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordPlanDowngrade(ctx context.Context, fromPlan, trigger string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("from_plan", strings.TrimSpace(fromPlan)),
		attribute.String("trigger", strings.TrimSpace(trigger)),
	)
	m.planDowngrades.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordPlanUpdate(ctx context.Context, plan string) {
	if m == nil {
		return
	}
	m.planUpdates.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("plan", plan))...))
}

func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSweepRun counts one expiry sweep. outcome is ok, error or timeout.
func (m *Metrics) RecordSweepRun(ctx context.Context, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(FilterAttributes(attribute.String("outcome", outcome))...)
	m.sweepRuns.Add(ctx, 1, attrs)
	m.sweepDuration.Record(ctx, duration.Seconds(), attrs)
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

// User ids never become labels.
var allowedLabelKeys = map[attribute.Key]struct{}{
	"plan":        {},
	"from_plan":   {},
	"outcome":     {},
	"trigger":     {},
	"endpoint":    {},
	"status_code": {},
	"reason":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
