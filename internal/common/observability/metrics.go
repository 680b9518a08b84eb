// Package observability exports run-level metrics through OpenTelemetry
// with a Prometheus reader.
package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"

	"dataset-notifier/internal/common/logger"
)

// Observability records one data point per sweep or completion run.
type Observability struct {
	meterProvider *metric.MeterProvider
	runCounter    otelmetric.Int64Counter
	runDuration   otelmetric.Float64Histogram
	logger        logger.Logger
}

// New registers a Prometheus exporter on the default registry and installs
// the provider globally. On exporter failure the returned value records
// nothing.
func New(serviceName string, log logger.Logger) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Error("failed to create prometheus exporter", map[string]interface{}{"error": err})
		return &Observability{logger: log}
	}
	o := newWithReader(serviceName, exporter, log)
	otel.SetMeterProvider(o.meterProvider)
	return o
}

func newWithReader(serviceName string, reader metric.Reader, log logger.Logger) *Observability {
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	meter := provider.Meter(serviceName)

	runCounter, err := meter.Int64Counter(
		"notification.runs",
		otelmetric.WithDescription("Number of notification runs by trigger and status"),
	)
	if err != nil {
		log.Warn("failed to create run counter", map[string]interface{}{"error": err})
	}

	runDuration, err := meter.Float64Histogram(
		"notification.run.duration",
		otelmetric.WithDescription("Notification run duration"),
		otelmetric.WithUnit("ms"),
	)
	if err != nil {
		log.Warn("failed to create run duration histogram", map[string]interface{}{"error": err})
	}

	return &Observability{
		meterProvider: provider,
		runCounter:    runCounter,
		runDuration:   runDuration,
		logger:        log,
	}
}

// RecordRun counts the run and records its duration, both tagged with
// trigger and status.
func (o *Observability) RecordRun(ctx context.Context, trigger, status string, duration time.Duration) {
	attrs := otelmetric.WithAttributes(
		attribute.String("trigger", trigger),
		attribute.String("status", status),
	)
	if o.runCounter != nil {
		o.runCounter.Add(ctx, 1, attrs)
	}
	if o.runDuration != nil {
		o.runDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.meterProvider.Shutdown(ctx); err != nil {
		o.logger.Warn("meter provider shutdown failed", map[string]interface{}{"error": err})
	}
}
