// Package telemetry wires OpenTelemetry tracing and metrics. With no
// collector configured everything degrades to no-ops, so call sites never
// guard their instrumentation.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"go.opentelemetry.io/otel/trace"
)

// Config controls the OTLP export pipeline.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	CollectorAddr  string
	MetricInterval time.Duration // metric export period, default 15s
	SampleRatio    float64       // trace sampling, default 1.0
}

type providers struct {
	tracer trace.Tracer
	meter  metric.Meter
	tp     *sdktrace.TracerProvider
	mp     *sdkmetric.MeterProvider
}

var active providers

// Init sets up the global tracer and meter. Disabled or nil config installs
// no-op instruments; Shutdown is then also a no-op.
func Init(ctx context.Context, cfg *Config) error {
	if cfg == nil || !cfg.Enabled {
		name := "slotwise"
		if cfg != nil && cfg.ServiceName != "" {
			name = cfg.ServiceName
		}
		active = providers{tracer: otel.Tracer(name), meter: otel.Meter(name)}
		return nil
	}
	if cfg.MetricInterval <= 0 {
		cfg.MetricInterval = 15 * time.Second
	}
	if cfg.SampleRatio <= 0 {
		cfg.SampleRatio = 1.0
	}

	// Explicit attributes only: merging with resource.Default() trips
	// schema URL conflicts against semconv v1.27.0.
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentNameKey.String(cfg.Environment),
		attribute.String("service.namespace", "slotwise"),
		semconv.TelemetrySDKLanguageGo,
	)

	traceExp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.CollectorAddr),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return fmt.Errorf("otlp trace exporter: %w", err)
	}
	sampler := sdktrace.AlwaysSample()
	if cfg.SampleRatio < 1.0 {
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRatio)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	metricExp, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.CollectorAddr),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return fmt.Errorf("otlp metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp,
			sdkmetric.WithInterval(cfg.MetricInterval))),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	active = providers{
		tracer: tp.Tracer(cfg.ServiceName),
		meter:  mp.Meter(cfg.ServiceName),
		tp:     tp,
		mp:     mp,
	}
	return nil
}

// Shutdown flushes and stops the export pipelines.
func Shutdown(ctx context.Context) error {
	var errs []error
	if active.tp != nil {
		if err := active.tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if active.mp != nil {
		if err := active.mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}

// GetMeter returns the meter instruments are created from. Safe before Init.
func GetMeter() metric.Meter {
	if active.meter == nil {
		return otel.Meter("slotwise")
	}
	return active.meter
}

// StartSpan starts a span under the global tracer.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if active.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return active.tracer.Start(ctx, name, opts...)
}

// SetSpanError records err on the span in ctx.
func SetSpanError(ctx context.Context, err error) {
	trace.SpanFromContext(ctx).RecordError(err)
}

// TraceID returns the current trace id, or "" outside a recording span.
func TraceID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
