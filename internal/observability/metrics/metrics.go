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

// Metrics exposes domain instruments exported over OTLP.
type Metrics struct {
	provisioningAttempts metric.Int64Counter
	provisioningLatency  metric.Float64Histogram
	invitesSent          metric.Int64Counter
	stepsCompleted       metric.Int64Counter
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

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(15*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)
	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "runway"
	}
	meter := provider.Meter(name)

	provisioningAttempts, err := meter.Int64Counter("runway_provisioning_attempts_total")
	if err != nil {
		return nil, err
	}
	provisioningLatency, err := meter.Float64Histogram("runway_provisioning_duration_seconds")
	if err != nil {
		return nil, err
	}
	invitesSent, err := meter.Int64Counter("runway_invites_sent_total")
	if err != nil {
		return nil, err
	}
	stepsCompleted, err := meter.Int64Counter("runway_onboarding_steps_completed_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		provisioningAttempts: provisioningAttempts,
		provisioningLatency:  provisioningLatency,
		invitesSent:          invitesSent,
		stepsCompleted:       stepsCompleted,
	}, nil
}

// RecordProvisioning counts one provider attempt and its latency.
func (m *Metrics) RecordProvisioning(ctx context.Context, provider, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("provider", strings.TrimSpace(provider)),
		attribute.String("status", strings.TrimSpace(status)),
	)
	m.provisioningAttempts.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.provisioningLatency.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordInviteSent(ctx context.Context, delivered bool) {
	if m == nil {
		return
	}
	reason := "delivered"
	if !delivered {
		reason = "undelivered"
	}
	m.invitesSent.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("reason", reason))...))
}

func (m *Metrics) RecordStepCompleted(ctx context.Context, stepType string) {
	if m == nil {
		return
	}
	m.stepsCompleted.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("step_type", strings.TrimSpace(stepType)))...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
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
	"provider":  {},
	"status":    {},
	"step_type": {},
	"reason":    {},
}

// FilterAttributes strips labels that would explode cardinality, such as user or org ids.
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
