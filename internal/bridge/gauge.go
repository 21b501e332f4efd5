package bridge

import (
	"math"
	"sync/atomic"

	"github.com/25x8/metric-bridge/internal/registry"
)

// atomicFloat64 хранит float64 в виде битов в atomic.Uint64
type atomicFloat64 struct {
	bits atomic.Uint64
}

func (f *atomicFloat64) Load() float64 {
	return math.Float64frombits(f.bits.Load())
}

func (f *atomicFloat64) Store(value float64) {
	f.bits.Store(math.Float64bits(value))
}

// numericGauge публикует значение ячейки хранилища как gauge реестра.
// Значение читается в момент измерения.
type numericGauge struct {
	id      registry.ID
	clock   registry.Clock
	read    func() float64
	counter bool
}

var _ registry.Gauge = (*numericGauge)(nil)

func newCounterGauge(id registry.ID, clock registry.Clock, cell *atomic.Int64) *numericGauge {
	return &numericGauge{id: id, clock: clock, read: func() float64 { return float64(cell.Load()) }, counter: true}
}

func newValueGauge(id registry.ID, clock registry.Clock, cell *atomicFloat64) *numericGauge {
	return &numericGauge{id: id, clock: clock, read: cell.Load}
}

func (g *numericGauge) ID() registry.ID {
	return g.id
}

// CounterCell сообщает, что gauge публикует ячейку счетчика Increment/Decrement
func (g *numericGauge) CounterCell() bool {
	return g.counter
}

func (g *numericGauge) Value() float64 {
	return g.read()
}

func (g *numericGauge) Measure() []registry.Measurement {
	return []registry.Measurement{{ID: g.id, Timestamp: g.clock.WallTime(), Value: g.Value()}}
}
