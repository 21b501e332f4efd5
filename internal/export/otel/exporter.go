// Package otel публикует измерения реестра через OpenTelemetry metric API.
package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/25x8/metric-bridge/internal/registry"
)

// InstrumentName - имя наблюдаемого gauge. Имя метрики реестра
// передается в атрибуте MetricAttribute.
const (
	InstrumentName  = "metric_bridge.measurement"
	MetricAttribute = "metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil registry")
)

type Exporter struct {
	source       registry.Registry
	gauge        metric.Float64ObservableGauge
	registration metric.Registration
}

// NewExporter регистрирует callback, который при каждом сборе
// отдает все измерения реестра
func NewExporter(meter metric.Meter, source registry.Registry) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	gauge, err := meter.Float64ObservableGauge(InstrumentName,
		metric.WithDescription("Current value of a metric-bridge registry measurement."))
	if err != nil {
		return nil, fmt.Errorf("create observable gauge %s: %w", InstrumentName, err)
	}

	e := &Exporter{source: source, gauge: gauge}

	registration, err := meter.RegisterCallback(e.observe, gauge)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = registration

	return e, nil
}

func (e *Exporter) observe(_ context.Context, observer metric.Observer) error {
	for _, m := range e.source.Measurements() {
		observer.ObserveFloat64(e.gauge, m.Value,
			metric.WithAttributes(attribute.String(MetricAttribute, m.ID.Name())))
	}
	return nil
}

// Close снимает регистрацию callback
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
