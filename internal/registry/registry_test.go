package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type constGauge struct {
	id    ID
	value float64
}

func (g constGauge) ID() ID         { return g.id }
func (g constGauge) Value() float64 { return g.value }
func (g constGauge) Measure() []Measurement {
	return []Measurement{{ID: g.id, Value: g.value}}
}

func TestMemRegistry_Counter(t *testing.T) {
	r := NewMemRegistry(NewManualClock(1000))

	r.Counter("requests").Increment(3)
	r.Counter("requests").Increment(-1)

	// Счетчик с тем же именем - тот же объект
	assert.Equal(t, int64(2), r.Counter("requests").Count())

	measurements := r.Measurements()
	require.Len(t, measurements, 1)
	assert.Equal(t, "requests.count", measurements[0].ID.Name())
	assert.Equal(t, int64(1000), measurements[0].Timestamp)
	assert.Equal(t, 2.0, measurements[0].Value)
}

func TestMemRegistry_DistributionSummary(t *testing.T) {
	r := NewMemRegistry(NewManualClock(0))

	d := r.DistributionSummary("payload")
	d.Record(10)
	d.Record(42)
	d.Record(-5)

	assert.Equal(t, int64(2), d.Count())
	assert.Equal(t, int64(52), d.TotalAmount())
	assert.Equal(t, int64(42), d.Max())

	values := map[string]float64{}
	for _, m := range r.Measurements() {
		values[m.ID.Name()] = m.Value
	}
	assert.Equal(t, map[string]float64{
		"payload.count":       2,
		"payload.totalAmount": 52,
		"payload.max":         42,
	}, values)
}

func TestMemRegistry_Timer(t *testing.T) {
	r := NewMemRegistry(nil)

	tm := r.Timer("request")
	tm.Record(100, time.Millisecond)
	tm.Record(2, time.Second)

	assert.Equal(t, int64(2), tm.Count())
	assert.Equal(t, 2100*time.Millisecond, tm.TotalTime())
	assert.Equal(t, 2*time.Second, tm.Max())

	values := map[string]float64{}
	for _, m := range r.Measurements() {
		values[m.ID.Name()] = m.Value
	}
	assert.InDelta(t, 2.1, values["request.totalTime"], 1e-9)
	assert.InDelta(t, 2.0, values["request.max"], 1e-9)
}

func TestMemRegistry_TypeConflict(t *testing.T) {
	r := NewMemRegistry(nil)
	r.Timer("latency").Record(1, time.Millisecond)

	// Счетчик с именем таймера не сохраняется в реестре
	c := r.Counter("latency")
	c.Increment(5)

	m, ok := r.Get("latency")
	require.True(t, ok)
	_, isTimer := m.(Timer)
	assert.True(t, isTimer)
}

func TestMemRegistry_RegisterReplaces(t *testing.T) {
	r := NewMemRegistry(nil)
	id := r.CreateID("queue")

	r.Register(constGauge{id: id, value: 1})
	r.Register(constGauge{id: id, value: 7})

	meters := r.Meters()
	require.Len(t, meters, 1)
	assert.Equal(t, 7.0, meters[0].(Gauge).Value())
}

func TestMemRegistry_RegisterKeepsBuiltins(t *testing.T) {
	r := NewMemRegistry(nil)
	r.Counter("hits").Increment(1)

	r.Register(constGauge{id: r.CreateID("hits"), value: 99})

	m, ok := r.Get("hits")
	require.True(t, ok)
	_, isCounter := m.(Counter)
	assert.True(t, isCounter)
}

func TestMemRegistry_ExpireStale(t *testing.T) {
	clock := NewManualClock(0)
	r := NewMemRegistry(clock)

	r.Register(constGauge{id: r.CreateID("old"), value: 1})
	r.Counter("kept").Increment(1)

	clock.Advance(2 * time.Minute)
	r.Register(constGauge{id: r.CreateID("fresh"), value: 2})

	removed := r.ExpireStale(time.Minute)
	assert.Equal(t, 1, removed)

	_, ok := r.Get("old")
	assert.False(t, ok)
	_, ok = r.Get("fresh")
	assert.True(t, ok)
	_, ok = r.Get("kept")
	assert.True(t, ok)

	assert.Equal(t, 0, r.ExpireStale(0))
}

func TestMemRegistry_ConcurrentCounter(t *testing.T) {
	r := NewMemRegistry(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Counter("shared").Increment(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(5000), r.Counter("shared").Count())
}
