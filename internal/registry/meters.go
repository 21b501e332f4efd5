package registry

import (
	"sync/atomic"
	"time"
)

// Meter - любая метрика, зарегистрированная в реестре
type Meter interface {
	ID() ID
	// Measure возвращает текущие значения метрики
	Measure() []Measurement
}

// Gauge - метрика с одним мгновенным значением
type Gauge interface {
	Meter
	Value() float64
}

// Counter - накопитель приращений. Отрицательные приращения допускаются.
type Counter interface {
	Meter
	Increment(delta int64)
	Count() int64
}

// DistributionSummary накапливает статистику по потоку целочисленных значений
type DistributionSummary interface {
	Meter
	Record(amount int64)
	Count() int64
	TotalAmount() int64
	Max() int64
}

// Timer накапливает статистику по длительностям
type Timer interface {
	Meter
	Record(amount int64, unit time.Duration)
	Count() int64
	TotalTime() time.Duration
	Max() time.Duration
}

// Названия статистик в именах измерений
const (
	StatCount       = "count"
	StatTotalAmount = "totalAmount"
	StatTotalTime   = "totalTime"
	StatMax         = "max"
)

type counter struct {
	id    ID
	clock Clock
	count atomic.Int64
}

func newCounter(id ID, clock Clock) *counter {
	return &counter{id: id, clock: clock}
}

func (c *counter) ID() ID { return c.id }

func (c *counter) Increment(delta int64) {
	c.count.Add(delta)
}

func (c *counter) Count() int64 {
	return c.count.Load()
}

func (c *counter) Measure() []Measurement {
	return []Measurement{{ID: c.id.WithStatistic(StatCount), Timestamp: c.clock.WallTime(), Value: float64(c.Count())}}
}

// stats - общая часть summary и timer
type stats struct {
	count atomic.Int64
	total atomic.Int64
	max   atomic.Int64
}

func (s *stats) record(amount int64) {
	s.count.Add(1)
	s.total.Add(amount)
	for {
		current := s.max.Load()
		if amount <= current || s.max.CompareAndSwap(current, amount) {
			return
		}
	}
}

type distributionSummary struct {
	id    ID
	clock Clock
	stats
}

func newDistributionSummary(id ID, clock Clock) *distributionSummary {
	return &distributionSummary{id: id, clock: clock}
}

func (d *distributionSummary) ID() ID { return d.id }

// Record учитывает значение. Отрицательные значения игнорируются.
func (d *distributionSummary) Record(amount int64) {
	if amount < 0 {
		return
	}
	d.record(amount)
}

func (d *distributionSummary) Count() int64       { return d.count.Load() }
func (d *distributionSummary) TotalAmount() int64 { return d.total.Load() }
func (d *distributionSummary) Max() int64         { return d.max.Load() }

func (d *distributionSummary) Measure() []Measurement {
	now := d.clock.WallTime()
	return []Measurement{
		{ID: d.id.WithStatistic(StatCount), Timestamp: now, Value: float64(d.Count())},
		{ID: d.id.WithStatistic(StatTotalAmount), Timestamp: now, Value: float64(d.TotalAmount())},
		{ID: d.id.WithStatistic(StatMax), Timestamp: now, Value: float64(d.Max())},
	}
}

type timer struct {
	id    ID
	clock Clock
	stats // в наносекундах
}

func newTimer(id ID, clock Clock) *timer {
	return &timer{id: id, clock: clock}
}

func (t *timer) ID() ID { return t.id }

// Record учитывает длительность amount*unit. Отрицательные длительности игнорируются.
func (t *timer) Record(amount int64, unit time.Duration) {
	if amount < 0 {
		return
	}
	t.record(int64(time.Duration(amount) * unit))
}

func (t *timer) Count() int64             { return t.count.Load() }
func (t *timer) TotalTime() time.Duration { return time.Duration(t.total.Load()) }
func (t *timer) Max() time.Duration       { return time.Duration(t.max.Load()) }

// Measure отдает длительности в секундах
func (t *timer) Measure() []Measurement {
	now := t.clock.WallTime()
	return []Measurement{
		{ID: t.id.WithStatistic(StatCount), Timestamp: now, Value: float64(t.Count())},
		{ID: t.id.WithStatistic(StatTotalTime), Timestamp: now, Value: t.TotalTime().Seconds()},
		{ID: t.id.WithStatistic(StatMax), Timestamp: now, Value: t.Max().Seconds()},
	}
}
