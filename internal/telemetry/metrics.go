// Package telemetry provides the OpenTelemetry MeterProvider and the
// instruments the attendance engine records on.
package telemetry

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Providers holds the MeterProvider and a shutdown function.
type Providers struct {
	MeterProvider *sdkmetric.MeterProvider
	Shutdown      func(context.Context) error
}

// NewProviders creates a MeterProvider that exports via OTLP gRPC to the given endpoint.
// endpoint may be a URL (e.g. http://localhost:4317); the path is dropped and only
// host:port is used for the dial. If empty, a no-op provider is returned and
// Shutdown is a no-op. https endpoints use TLS.
func NewProviders(ctx context.Context, endpoint, serviceName string) (*Providers, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return &Providers{
			MeterProvider: sdkmetric.NewMeterProvider(),
			Shutdown:      func(context.Context) error { return nil },
		}, nil
	}

	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid OTLP endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid OTLP endpoint %q: missing host", endpoint)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(u.Host)}
	if u.Scheme != "https" {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
	)
	return &Providers{
		MeterProvider: mp,
		Shutdown:      mp.Shutdown,
	}, nil
}

// Metrics holds the engine's instruments. All methods are safe on a nil receiver
// so call sites do not need to guard against disabled telemetry.
type Metrics struct {
	checkIns       metric.Int64Counter
	liveConns      metric.Int64UpDownCounter
	tokenRotations metric.Int64Counter
}

// NewMetrics creates the engine instruments on the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter("rollcall/backend")

	checkIns, err := meter.Int64Counter("rollcall.checkins",
		metric.WithDescription("Check-in attempts by outcome"))
	if err != nil {
		return nil, err
	}
	liveConns, err := meter.Int64UpDownCounter("rollcall.live_connections",
		metric.WithDescription("Currently subscribed live connections"))
	if err != nil {
		return nil, err
	}
	rotations, err := meter.Int64Counter("rollcall.token_rotations",
		metric.WithDescription("Rolling token rotations pushed to subscribers"))
	if err != nil {
		return nil, err
	}
	return &Metrics{checkIns: checkIns, liveConns: liveConns, tokenRotations: rotations}, nil
}

// RecordCheckIn counts one check-in attempt with its outcome (e.g. PRESENT, LATE, rejection reason).
func (m *Metrics) RecordCheckIn(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.checkIns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// ConnectionOpened records one new live subscriber.
func (m *Metrics) ConnectionOpened(ctx context.Context) {
	if m == nil {
		return
	}
	m.liveConns.Add(ctx, 1)
}

// ConnectionClosed records one departed live subscriber.
func (m *Metrics) ConnectionClosed(ctx context.Context) {
	if m == nil {
		return
	}
	m.liveConns.Add(ctx, -1)
}

// RecordRotation counts one token rotation for a round.
func (m *Metrics) RecordRotation(ctx context.Context) {
	if m == nil {
		return
	}
	m.tokenRotations.Add(ctx, 1)
}
