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
	awardsGranted        metric.Int64Counter
	awardsRejected       metric.Int64Counter
	awardsRevoked        metric.Int64Counter
	rateLimitDenied      metric.Int64Counter
	reconcileActions     metric.Int64Counter
	notificationsDropped metric.Int64Counter
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
		name = "merit"
	}
	meter := provider.Meter(name)

	awardsGranted, err := meter.Int64Counter("merit_awards_granted_total")
	if err != nil {
		return nil, err
	}
	awardsRejected, err := meter.Int64Counter("merit_awards_rejected_total")
	if err != nil {
		return nil, err
	}
	awardsRevoked, err := meter.Int64Counter("merit_awards_revoked_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("merit_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}
	reconcileActions, err := meter.Int64Counter("merit_reconcile_actions_total")
	if err != nil {
		return nil, err
	}
	notificationsDropped, err := meter.Int64Counter("merit_notifications_dropped_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		awardsGranted:        awardsGranted,
		awardsRejected:       awardsRejected,
		awardsRevoked:        awardsRevoked,
		rateLimitDenied:      rateLimitDenied,
		reconcileActions:     reconcileActions,
		notificationsDropped: notificationsDropped,
	}, nil
}

// RecordAwardGranted increments granted award counts per source tag.
func (m *Metrics) RecordAwardGranted(ctx context.Context, sourceTag string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("source_tag", strings.TrimSpace(sourceTag)))
	m.awardsGranted.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAwardRejected increments rejected award counts per reason code.
func (m *Metrics) RecordAwardRejected(ctx context.Context, sourceTag, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("source_tag", strings.TrimSpace(sourceTag)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.awardsRejected.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAwardRevoked increments revoked award counts per source tag.
func (m *Metrics) RecordAwardRevoked(ctx context.Context, sourceTag string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("source_tag", strings.TrimSpace(sourceTag)))
	m.awardsRevoked.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitDenied increments rate limit deny counts.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, tenantID, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("tenant_id", strings.TrimSpace(tenantID)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordReconcileAction increments reconcile transition counts per action.
func (m *Metrics) RecordReconcileAction(ctx context.Context, action string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("action", strings.TrimSpace(action)))
	m.reconcileActions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordNotificationDropped increments dropped notification counts.
func (m *Metrics) RecordNotificationDropped(ctx context.Context, eventType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("event_type", strings.TrimSpace(eventType)))
	m.notificationsDropped.Add(ctx, 1, metric.WithAttributes(attrs...))
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

var allowedLabelKeys = map[attribute.Key]struct{}{
	"tenant_id":   {},
	"endpoint":    {},
	"status_code": {},
	"source_tag":  {},
	"event_type":  {},
	"reason":      {},
	"action":      {},
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
