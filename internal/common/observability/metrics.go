package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Observability records analysis telemetry through an OpenTelemetry meter.
type Observability struct {
	meterProvider    *metric.MeterProvider
	analyses         otelmetric.Int64Counter
	analysisDuration otelmetric.Float64Histogram
	crmCalls         otelmetric.Int64Counter
}

// New exports through the OpenTelemetry Prometheus exporter registered on the default
// Prometheus registry, so /metrics serves both.
func New(serviceName string) (*Observability, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	o, err := NewWithReader(serviceName, exporter)
	if err != nil {
		return nil, err
	}
	otel.SetMeterProvider(o.meterProvider)
	return o, nil
}

// NewWithReader builds the instruments on top of an arbitrary reader.
func NewWithReader(serviceName string, reader metric.Reader) (*Observability, error) {
	provider := metric.NewMeterProvider(
		metric.WithReader(reader),
		metric.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
	)
	meter := provider.Meter(serviceName)

	analyses, err := meter.Int64Counter(
		"journey.analyses",
		otelmetric.WithDescription("Journey analyses by outcome and stage"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create analyses counter: %w", err)
	}

	analysisDuration, err := meter.Float64Histogram(
		"journey.analysis.duration",
		otelmetric.WithDescription("End-to-end analysis duration including CRM lookups"),
		otelmetric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	crmCalls, err := meter.Int64Counter(
		"journey.crm.lookups",
		otelmetric.WithDescription("CRM record lookups performed during analysis"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create crm counter: %w", err)
	}

	return &Observability{
		meterProvider:    provider,
		analyses:         analyses,
		analysisDuration: analysisDuration,
		crmCalls:         crmCalls,
	}, nil
}

// NewNoop discards everything.
func NewNoop() *Observability {
	return &Observability{}
}

func (o *Observability) RecordAnalysis(ctx context.Context, status, stage string, duration time.Duration) {
	if o == nil || o.analyses == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("status", status),
		attribute.String("stage", stage),
	)
	o.analyses.Add(ctx, 1, attrs)
	o.analysisDuration.Record(ctx, float64(duration.Microseconds())/1000, attrs)
}

func (o *Observability) RecordCRMLookup(ctx context.Context, objectType, result string) {
	if o == nil || o.crmCalls == nil {
		return
	}
	o.crmCalls.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("object_type", objectType),
		attribute.String("result", result),
	))
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o == nil || o.meterProvider == nil {
		return nil
	}
	return o.meterProvider.Shutdown(ctx)
}
