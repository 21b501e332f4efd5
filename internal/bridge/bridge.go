// Package bridge реализует устаревшие сервисы счетчиков и gauge-метрик
// поверх реестра метрик.
//
// Тип метрики в реестре выбирается по префиксу имени:
//
//	status.*    - отбрасывается
//	meter.*     - счетчик реестра
//	histogram.* - distribution summary
//	timer.*     - таймер в миллисекундах
//
// Остальные имена хранятся в атомарных ячейках и публикуются в реестре как gauge.
package bridge

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/25x8/metric-bridge/internal/logger"
	"github.com/25x8/metric-bridge/internal/registry"
)

// Префиксы имен метрик
const (
	PrefixStatus    = "status."
	PrefixMeter     = "meter."
	PrefixHistogram = "histogram."
	PrefixTimer     = "timer."
)

// MetricServices реализует CounterService и GaugeService поверх registry.Registry
type MetricServices struct {
	registry registry.Registry
	log      *zap.Logger

	counters sync.Map // registry.ID -> *atomic.Int64
	gauges   sync.Map // registry.ID -> *atomicFloat64
}

var _ Services = (*MetricServices)(nil)

// Option настраивает MetricServices
type Option func(*MetricServices)

// WithLogger задает логгер. По умолчанию используется logger.Log.
func WithLogger(log *zap.Logger) Option {
	return func(s *MetricServices) {
		s.log = log
	}
}

// New - конструктор для MetricServices
func New(reg registry.Registry, opts ...Option) *MetricServices {
	s := &MetricServices{registry: reg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MetricServices) logger() *zap.Logger {
	if s.log != nil {
		return s.log
	}
	return logger.Log
}

// StripMetricName убирает из начала имени префикс timer., histogram. или meter.
func StripMetricName(name string) string {
	for _, prefix := range []string{PrefixTimer, PrefixHistogram, PrefixMeter} {
		if stripped, ok := strings.CutPrefix(name, prefix); ok {
			return stripped
		}
	}
	return name
}

func (s *MetricServices) Increment(name string) {
	s.adjust(name, 1)
}

func (s *MetricServices) Decrement(name string) {
	s.adjust(name, -1)
}

func (s *MetricServices) adjust(name string, delta int64) {
	switch {
	case strings.HasPrefix(name, PrefixStatus):
		// status.* уже пишет перехватчик HTTP-запросов, у него больше контекста
		s.logger().Debug("Dropping status metric", zap.String("name", name))
	case strings.HasPrefix(name, PrefixMeter):
		s.registry.Counter(StripMetricName(name)).Increment(delta)
	default:
		id := s.registry.CreateID(name)
		cell := s.counterStorage(id)
		cell.Add(delta)
		s.registry.Register(newCounterGauge(id, s.registry.Clock(), cell))
	}
}

// Submit записывает значение. Для histogram. и timer. значение
// усекается до int64 без проверки диапазона.
func (s *MetricServices) Submit(name string, value float64) {
	switch {
	case strings.HasPrefix(name, PrefixHistogram):
		s.registry.DistributionSummary(StripMetricName(name)).Record(int64(value))
	case strings.HasPrefix(name, PrefixTimer):
		s.registry.Timer(StripMetricName(name)).Record(int64(value), time.Millisecond)
	default:
		id := s.registry.CreateID(name)
		cell := s.gaugeStorage(id)
		cell.Store(value)
		s.registry.Register(newValueGauge(id, s.registry.Clock(), cell))
	}
}

// Reset удаляет ячейки счетчика и gauge. Уже опубликованные метрики
// остаются в реестре, пока он сам их не удалит.
func (s *MetricServices) Reset(name string) {
	id := s.registry.CreateID(StripMetricName(name))
	s.counters.Delete(id)
	s.gauges.Delete(id)
}

// SeedCounter записывает значение в ячейку счетчика name и публикует ее.
// Имя не разбирается по префиксам, так восстанавливаются сохраненные счетчики.
func (s *MetricServices) SeedCounter(name string, value int64) {
	id := s.registry.CreateID(name)
	cell := s.counterStorage(id)
	cell.Store(value)
	s.registry.Register(newCounterGauge(id, s.registry.Clock(), cell))
}

// CounterValue возвращает значение ячейки счетчика без ее создания
func (s *MetricServices) CounterValue(name string) (int64, bool) {
	v, ok := s.counters.Load(s.registry.CreateID(name))
	if !ok {
		return 0, false
	}
	return v.(*atomic.Int64).Load(), true
}

// GaugeValue возвращает значение ячейки gauge без ее создания
func (s *MetricServices) GaugeValue(name string) (float64, bool) {
	v, ok := s.gauges.Load(s.registry.CreateID(name))
	if !ok {
		return 0, false
	}
	return v.(*atomicFloat64).Load(), true
}

func (s *MetricServices) counterStorage(id registry.ID) *atomic.Int64 {
	if v, ok := s.counters.Load(id); ok {
		return v.(*atomic.Int64)
	}
	v, _ := s.counters.LoadOrStore(id, new(atomic.Int64))
	return v.(*atomic.Int64)
}

func (s *MetricServices) gaugeStorage(id registry.ID) *atomicFloat64 {
	if v, ok := s.gauges.Load(id); ok {
		return v.(*atomicFloat64)
	}
	v, _ := s.gauges.LoadOrStore(id, new(atomicFloat64))
	return v.(*atomicFloat64)
}
