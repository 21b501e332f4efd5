package otel

import (
	"context"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

// NewMeterProvider создает MeterProvider, который каждые interval
// собирает наблюдаемые инструменты и пишет точки в log
func NewMeterProvider(log *zap.Logger, interval time.Duration) *sdkmetric.MeterProvider {
	reader := sdkmetric.NewPeriodicReader(&logExporter{log: log}, sdkmetric.WithInterval(interval))
	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

// logExporter выгружает собранные метрики в zap
type logExporter struct {
	log *zap.Logger
}

var _ sdkmetric.Exporter = (*logExporter)(nil)

func (e *logExporter) Temporality(kind sdkmetric.InstrumentKind) metricdata.Temporality {
	return sdkmetric.DefaultTemporalitySelector(kind)
}

func (e *logExporter) Aggregation(kind sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return sdkmetric.DefaultAggregationSelector(kind)
}

func (e *logExporter) Export(_ context.Context, rm *metricdata.ResourceMetrics) error {
	points := 0
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			gauge, ok := m.Data.(metricdata.Gauge[float64])
			if !ok {
				continue
			}
			for _, dp := range gauge.DataPoints {
				name, _ := dp.Attributes.Value(MetricAttribute)
				e.log.Debug("OTel data point",
					zap.String("instrument", m.Name),
					zap.String("metric", name.AsString()),
					zap.Float64("value", dp.Value),
				)
				points++
			}
		}
	}
	e.log.Info("Exported OTel metrics", zap.Int("points", points))
	return nil
}

func (e *logExporter) ForceFlush(context.Context) error {
	return nil
}

func (e *logExporter) Shutdown(context.Context) error {
	return nil
}
