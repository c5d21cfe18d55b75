// Package bptelemetry wires the buffer pool's Stats counters into
// OpenTelemetry metrics, exported over a Prometheus endpoint, and sets up a
// tracer for the Manager's public operations. Adapted from the teacher's
// general-purpose pkg/telemetry for the buffer pool's three counters.
package bptelemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.25.0"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

// Config holds the telemetry knobs, loaded from YAML alongside the rest of
// appconfig.Config.
type Config struct {
	Enabled          bool    `yaml:"enabled"`
	ServiceName      string  `yaml:"service_name"`
	PrometheusPort   int     `yaml:"prometheus_port"`
	TraceSampleRatio float64 `yaml:"trace_sample_ratio"`
}

// ShutdownFunc flushes and tears down the telemetry providers.
type ShutdownFunc func(ctx context.Context) error

// Telemetry bundles the active tracer, meter, and the buffer-pool-specific
// Recorder built on top of the meter.
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Recorder       *Recorder
}

// Recorder mirrors bufferpool.Stats into three OpenTelemetry counters. It
// satisfies bufferpool's unexported metricsRecorder interface structurally
// (RecordAccess/RecordDiskRead/RecordDiskWrite), so bufferpool never
// imports this package — callers pass a *Recorder to
// bufferpool.WithMetrics.
type Recorder struct {
	accesses   metric.Int64Counter
	diskReads  metric.Int64Counter
	diskWrites metric.Int64Counter
}

func newRecorder(meter metric.Meter) (*Recorder, error) {
	accesses, err := meter.Int64Counter("bufferpool.accesses",
		metric.WithDescription("total fetch/flush accesses against the buffer pool"))
	if err != nil {
		return nil, fmt.Errorf("creating accesses counter: %w", err)
	}
	diskReads, err := meter.Int64Counter("bufferpool.disk_reads",
		metric.WithDescription("total pages read from the pager on a cache miss"))
	if err != nil {
		return nil, fmt.Errorf("creating disk_reads counter: %w", err)
	}
	diskWrites, err := meter.Int64Counter("bufferpool.disk_writes",
		metric.WithDescription("total pages written back to the pager"))
	if err != nil {
		return nil, fmt.Errorf("creating disk_writes counter: %w", err)
	}
	return &Recorder{accesses: accesses, diskReads: diskReads, diskWrites: diskWrites}, nil
}

func (r *Recorder) RecordAccess()    { r.accesses.Add(context.Background(), 1) }
func (r *Recorder) RecordDiskRead()  { r.diskReads.Add(context.Background(), 1) }
func (r *Recorder) RecordDiskWrite() { r.diskWrites.Add(context.Background(), 1) }

// New initializes OpenTelemetry metrics (exported via Prometheus) and
// tracing. When config.Enabled is false, it returns no-op providers, same
// as the teacher's pkg/telemetry.New.
func New(config Config) (*Telemetry, ShutdownFunc, error) {
	if !config.Enabled {
		rec, _ := newRecorder(noop.NewMeterProvider().Meter(""))
		return &Telemetry{
			Tracer:   nooptrace.NewTracerProvider().Tracer(""),
			Recorder: rec,
		}, func(context.Context) error { return nil }, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(config.ServiceName)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("creating resource: %w", err)
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		addr := fmt.Sprintf(":%d", config.PrometheusPort)
		if err := http.ListenAndServe(addr, mux); err != nil {
			otel.Handle(fmt.Errorf("bptelemetry: prometheus http server failed: %w", err))
		}
	}()

	sampleRatio := config.TraceSampleRatio
	if sampleRatio <= 0 || sampleRatio > 1 {
		sampleRatio = 1.0
	}
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(sampleRatio)),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)

	meter := meterProvider.Meter(config.ServiceName)
	recorder, err := newRecorder(meter)
	if err != nil {
		return nil, nil, err
	}

	shutdown := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutting down tracer provider: %w", err)
		}
		if err := meterProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutting down meter provider: %w", err)
		}
		return nil
	}

	return &Telemetry{
		TracerProvider: tracerProvider,
		MeterProvider:  meterProvider,
		Tracer:         tracerProvider.Tracer(config.ServiceName),
		Recorder:       recorder,
	}, shutdown, nil
}
