package otel

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/25x8/metric-bridge/internal/registry"
)

func TestMeterProviderExportsToLog(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	provider := NewMeterProvider(zap.New(core), time.Hour)

	reg := registry.NewMemRegistry(nil)
	reg.Counter("hits").Increment(2)

	exp, err := NewExporter(provider.Meter("metric-bridge-test"), reg)
	if err != nil {
		t.Fatalf("NewExporter failed: %v", err)
	}
	t.Cleanup(func() { _ = exp.Close() })

	if err := provider.ForceFlush(context.Background()); err != nil {
		t.Fatalf("ForceFlush failed: %v", err)
	}

	points := logs.FilterMessage("OTel data point").FilterField(zap.String("metric", "hits.count")).All()
	if len(points) == 0 {
		t.Fatalf("no data point logged for hits.count")
	}
	if v := points[0].ContextMap()["value"]; v != 2.0 {
		t.Fatalf("hits.count = %v, want 2", v)
	}
	if logs.FilterMessage("Exported OTel metrics").Len() == 0 {
		t.Fatalf("export summary was not logged")
	}

	if err := provider.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
}
