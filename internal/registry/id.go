package registry

import (
	"sync/atomic"
	"time"
)

// ID - идентификатор метрики в реестре.
// Два идентификатора равны тогда и только тогда, когда совпадают их имена,
// поэтому ID можно использовать как ключ map.
type ID struct {
	name string
}

// NewID создает идентификатор по имени метрики
func NewID(name string) ID {
	return ID{name: name}
}

// Name возвращает имя метрики
func (id ID) Name() string {
	return id.name
}

// WithStatistic возвращает идентификатор вида <name>.<statistic>
func (id ID) WithStatistic(statistic string) ID {
	return ID{name: id.name + "." + statistic}
}

func (id ID) String() string {
	return id.name
}

// Measurement - значение метрики в момент чтения
type Measurement struct {
	ID        ID
	Timestamp int64 // миллисекунды с начала эпохи
	Value     float64
}

// Clock - источник времени для отметок измерений
type Clock interface {
	// WallTime возвращает текущее время в миллисекундах с начала эпохи
	WallTime() int64
}

// SystemClock использует системное время
type SystemClock struct{}

func (SystemClock) WallTime() int64 {
	return time.Now().UnixMilli()
}

// ManualClock - часы с ручным управлением для тестов
type ManualClock struct {
	now atomic.Int64
}

// NewManualClock создает часы, показывающие заданное время
func NewManualClock(wallTime int64) *ManualClock {
	c := &ManualClock{}
	c.now.Store(wallTime)
	return c
}

func (c *ManualClock) WallTime() int64 {
	return c.now.Load()
}

// SetWallTime устанавливает текущее время
func (c *ManualClock) SetWallTime(wallTime int64) {
	c.now.Store(wallTime)
}

// Advance сдвигает часы вперед на d
func (c *ManualClock) Advance(d time.Duration) {
	c.now.Add(d.Milliseconds())
}
