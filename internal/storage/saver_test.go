package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/25x8/metric-bridge/internal/bridge"
	"github.com/25x8/metric-bridge/internal/registry"
)

type memStore struct {
	mu      sync.Mutex
	saves   int
	records []Record
	loadErr error
}

func (m *memStore) SaveSnapshot(_ context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.records = records
	return nil
}

func (m *memStore) LoadSnapshot(_ context.Context) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records, m.loadErr
}

func (m *memStore) Ping(context.Context) error { return nil }
func (m *memStore) Close() error               { return nil }

func (m *memStore) snapshot() (int, []Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves, m.records
}

func TestSnapshot(t *testing.T) {
	reg := registry.NewMemRegistry(registry.NewManualClock(7))
	services := bridge.New(reg)

	services.Submit("load", 0.5)
	services.Increment("jobs")
	services.Increment("meter.hits")
	services.Submit("timer.request", 20)
	services.Submit("histogram.size", 3)

	kinds := map[string]string{}
	for _, r := range Snapshot(reg) {
		kinds[r.Name] = r.Kind
		assert.Equal(t, int64(7), r.Timestamp)
	}

	assert.Equal(t, KindGauge, kinds["load"])
	assert.Equal(t, KindCounterCell, kinds["jobs"])
	assert.Equal(t, KindCounter, kinds["hits.count"])
	assert.Equal(t, KindTimer, kinds["request.totalTime"])
	assert.Equal(t, KindSummary, kinds["size.max"])
}

func TestRunPeriodicSave(t *testing.T) {
	reg := registry.NewMemRegistry(nil)
	bridge.New(reg).Submit("load", 1)
	store := &memStore{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunPeriodicSave(ctx, reg, store, 10*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		saves, _ := store.snapshot()
		return saves >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunPeriodicSave did not stop")
	}

	_, records := store.snapshot()
	require.Len(t, records, 1)
	assert.Equal(t, "load", records[0].Name)
}

func TestRestore(t *testing.T) {
	store := &memStore{records: []Record{
		{Name: "load", Kind: KindGauge, Value: 0.5},
		{Name: "jobs", Kind: KindGauge, Value: 3},
		{Name: "hits.count", Kind: KindCounter, Value: 9},
		{Name: "timer.odd", Kind: KindGauge, Value: 1},
		{Name: "request.max", Kind: KindTimer, Value: 0.2},
		{Name: "timer.retries", Kind: KindCounterCell, Value: 4},
	}}

	reg := registry.NewMemRegistry(nil)
	services := bridge.New(reg)

	restored, err := Restore(context.Background(), store, services)
	require.NoError(t, err)
	assert.Equal(t, 3, restored)

	value, ok := services.GaugeValue("load")
	require.True(t, ok)
	assert.Equal(t, 0.5, value)
	value, ok = services.GaugeValue("jobs")
	require.True(t, ok)
	assert.Equal(t, 3.0, value)

	_, ok = services.GaugeValue("hits.count")
	assert.False(t, ok)
	assert.Equal(t, int64(0), reg.Timer("odd").Count())

	// Ячейка счетчика восстанавливается под исходным именем, без разбора префикса
	counter, ok := services.CounterValue("timer.retries")
	require.True(t, ok)
	assert.Equal(t, int64(4), counter)
	assert.Equal(t, int64(0), reg.Timer("retries").Count())
}

func TestRestoreContinuesCounter(t *testing.T) {
	store := &memStore{}

	before := registry.NewMemRegistry(nil)
	services := bridge.New(before)
	for i := 0; i < 5; i++ {
		services.Increment("hits")
	}
	services.Submit("load", 0.25)
	require.NoError(t, SaveRegistry(context.Background(), before, store))

	// Новый процесс: пустой реестр и мост
	after := registry.NewMemRegistry(nil)
	restoredServices := bridge.New(after)
	restored, err := Restore(context.Background(), store, restoredServices)
	require.NoError(t, err)
	assert.Equal(t, 2, restored)

	restoredServices.Increment("hits")

	counter, ok := restoredServices.CounterValue("hits")
	require.True(t, ok)
	assert.Equal(t, int64(6), counter)
	_, ok = restoredServices.GaugeValue("hits")
	assert.False(t, ok)

	m, ok := after.Get("hits")
	require.True(t, ok)
	assert.Equal(t, 6.0, m.(registry.Gauge).Value())

	load, ok := restoredServices.GaugeValue("load")
	require.True(t, ok)
	assert.Equal(t, 0.25, load)
}

func TestRestore_LoadError(t *testing.T) {
	store := &memStore{loadErr: errors.New("broken")}

	_, err := Restore(context.Background(), store, bridge.New(registry.NewMemRegistry(nil)))
	assert.Error(t, err)
}
