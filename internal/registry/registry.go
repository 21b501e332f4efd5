package registry

import (
	"sort"
	"sync"
	"time"
)

// Registry определяет набор операций реестра метрик, которые использует мост
// между устаревшими сервисами счетчиков/gauge и реестром.
type Registry interface {
	// Clock возвращает часы, которыми помечаются измерения
	Clock() Clock

	// CreateID создает идентификатор метрики по имени
	CreateID(name string) ID

	// Counter возвращает счетчик с указанным именем, создавая его при необходимости
	Counter(name string) Counter

	// DistributionSummary возвращает summary с указанным именем, создавая его при необходимости
	DistributionSummary(name string) DistributionSummary

	// Timer возвращает таймер с указанным именем, создавая его при необходимости
	Timer(name string) Timer

	// Register публикует пользовательскую метрику. Повторная регистрация
	// с тем же ID заменяет ранее зарегистрированную метрику.
	Register(m Meter)

	// Meters возвращает все метрики реестра, упорядоченные по имени
	Meters() []Meter

	// Measurements возвращает текущие значения всех метрик
	Measurements() []Measurement
}

type entry struct {
	meter      Meter
	registered bool  // опубликована через Register
	updated    int64 // время последней регистрации
}

// MemRegistry - реестр метрик в памяти
type MemRegistry struct {
	mu     sync.Mutex
	clock  Clock
	meters map[ID]*entry
}

var _ Registry = (*MemRegistry)(nil)

// NewMemRegistry - конструктор для MemRegistry. При clock == nil используются системные часы.
func NewMemRegistry(clock Clock) *MemRegistry {
	if clock == nil {
		clock = SystemClock{}
	}
	return &MemRegistry{
		clock:  clock,
		meters: make(map[ID]*entry),
	}
}

func (r *MemRegistry) Clock() Clock {
	return r.clock
}

func (r *MemRegistry) CreateID(name string) ID {
	return NewID(name)
}

// getOrCreate возвращает метрику по ID или сохраняет созданную через create.
// Тип возвращенной метрики проверяет вызывающий код.
func (r *MemRegistry) getOrCreate(id ID, create func() Meter) Meter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, exists := r.meters[id]; exists {
		return e.meter
	}
	m := create()
	r.meters[id] = &entry{meter: m, updated: r.clock.WallTime()}
	return m
}

// Counter возвращает счетчик. При конфликте типов возвращается
// несохраненный счетчик, чтобы вызывающий код не падал.
func (r *MemRegistry) Counter(name string) Counter {
	id := r.CreateID(name)
	m := r.getOrCreate(id, func() Meter { return newCounter(id, r.clock) })
	if c, ok := m.(Counter); ok {
		return c
	}
	return newCounter(id, r.clock)
}

func (r *MemRegistry) DistributionSummary(name string) DistributionSummary {
	id := r.CreateID(name)
	m := r.getOrCreate(id, func() Meter { return newDistributionSummary(id, r.clock) })
	if d, ok := m.(DistributionSummary); ok {
		return d
	}
	return newDistributionSummary(id, r.clock)
}

func (r *MemRegistry) Timer(name string) Timer {
	id := r.CreateID(name)
	m := r.getOrCreate(id, func() Meter { return newTimer(id, r.clock) })
	if t, ok := m.(Timer); ok {
		return t
	}
	return newTimer(id, r.clock)
}

// Register сохраняет метрику под ее ID и обновляет время регистрации.
// Встроенные счетчики, summary и таймеры пользовательской метрикой не затираются.
func (r *MemRegistry) Register(m Meter) {
	if m == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, exists := r.meters[m.ID()]; exists && !e.registered {
		return
	}
	r.meters[m.ID()] = &entry{meter: m, registered: true, updated: r.clock.WallTime()}
}

// Get возвращает метрику по имени
func (r *MemRegistry) Get(name string) (Meter, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.meters[r.CreateID(name)]
	if !exists {
		return nil, false
	}
	return e.meter, true
}

func (r *MemRegistry) Meters() []Meter {
	r.mu.Lock()
	meters := make([]Meter, 0, len(r.meters))
	for _, e := range r.meters {
		meters = append(meters, e.meter)
	}
	r.mu.Unlock()

	sort.Slice(meters, func(i, j int) bool {
		return meters[i].ID().Name() < meters[j].ID().Name()
	})
	return meters
}

func (r *MemRegistry) Measurements() []Measurement {
	var measurements []Measurement
	for _, m := range r.Meters() {
		measurements = append(measurements, m.Measure()...)
	}
	return measurements
}

// ExpireStale удаляет опубликованные через Register метрики, которые не
// перерегистрировались дольше maxAge. Возвращает число удаленных метрик.
func (r *MemRegistry) ExpireStale(maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	deadline := r.clock.WallTime() - maxAge.Milliseconds()
	removed := 0
	for id, e := range r.meters {
		if e.registered && e.updated < deadline {
			delete(r.meters, id)
			removed++
		}
	}
	return removed
}
