// Package telemetry exports classified-session metrics to an OpenTelemetry
// collector over OTLP/gRPC.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/blackwell-systems/sessionlens/internal/analyzer"
)

const serviceName = "sessionlens"

// Config selects the collector. Export is off unless Enabled is set and an
// Endpoint is given.
type Config struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

// Recorder records classified sessions as metrics.
type Recorder interface {
	RecordSessions(ctx context.Context, sessions []analyzer.ClassifiedSession)
	// Close flushes pending metrics.
	Close(ctx context.Context) error
}

// New returns an OTLP-backed recorder, or a no-op recorder when export is
// not configured.
func New(ctx context.Context, cfg Config, version string) (Recorder, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return noop{}, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(version),
	))
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
		sdkmetric.WithResource(res),
	)
	return newMeterRecorder(provider)
}

// meterRecorder records into an SDK meter provider.
type meterRecorder struct {
	provider   *sdkmetric.MeterProvider
	sessions   metric.Int64Counter
	duration   metric.Float64Histogram
	toolCalls  metric.Int64Histogram
	confidence metric.Int64Histogram
}

func newMeterRecorder(provider *sdkmetric.MeterProvider) (*meterRecorder, error) {
	meter := provider.Meter(serviceName)
	r := &meterRecorder{provider: provider}

	var err error
	if r.sessions, err = meter.Int64Counter(
		"sessionlens_sessions_total",
		metric.WithDescription("Classified sessions by outcome, task type, and session type"),
		metric.WithUnit("{session}"),
	); err != nil {
		return nil, fmt.Errorf("creating sessions counter: %w", err)
	}
	if r.duration, err = meter.Float64Histogram(
		"sessionlens_session_duration_minutes",
		metric.WithDescription("Session duration"),
		metric.WithUnit("min"),
	); err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}
	if r.toolCalls, err = meter.Int64Histogram(
		"sessionlens_session_tool_calls",
		metric.WithDescription("Tool calls per session"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, fmt.Errorf("creating tool call histogram: %w", err)
	}
	if r.confidence, err = meter.Int64Histogram(
		"sessionlens_completion_confidence",
		metric.WithDescription("Completion confidence score (0-100)"),
	); err != nil {
		return nil, fmt.Errorf("creating confidence histogram: %w", err)
	}
	return r, nil
}

func (r *meterRecorder) RecordSessions(ctx context.Context, sessions []analyzer.ClassifiedSession) {
	for i := range sessions {
		c := &sessions[i]
		attrs := metric.WithAttributes(
			attribute.String("outcome", string(c.Outcome)),
			attribute.String("task_type", string(c.TaskType)),
			attribute.String("session_type", string(c.SessionType)),
		)
		r.sessions.Add(ctx, 1, attrs)
		r.duration.Record(ctx, c.DurationMinutes, attrs)
		r.toolCalls.Record(ctx, int64(c.ToolCallCount), attrs)
		r.confidence.Record(ctx, int64(c.ConfidenceScore), attrs)
	}
}

func (r *meterRecorder) Close(ctx context.Context) error {
	return r.provider.Shutdown(ctx)
}

type noop struct{}

func (noop) RecordSessions(context.Context, []analyzer.ClassifiedSession) {}
func (noop) Close(context.Context) error                                   { return nil }
