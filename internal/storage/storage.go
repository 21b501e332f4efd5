package storage

import (
	"context"

	"github.com/25x8/metric-bridge/internal/registry"
)

// Типы метрик в снимке
const (
	KindGauge       = "gauge"
	KindCounterCell = "counter_cell"
	KindCounter     = "counter"
	KindSummary     = "summary"
	KindTimer       = "timer"
)

// counterCell - gauge, публикующий ячейку счетчика моста
type counterCell interface {
	CounterCell() bool
}

// Record - одно измерение в сохраненном снимке реестра
type Record struct {
	Name      string  `json:"name"`
	Kind      string  `json:"kind"`
	Timestamp int64   `json:"ts"`
	Value     float64 `json:"value"`
}

// Storage определяет интерфейс для сохранения снимков реестра метрик.
// Реализации сохраняют снимок в файл или в базу данных.
type Storage interface {
	// SaveSnapshot сохраняет снимок. Записи с совпадающим именем заменяются.
	SaveSnapshot(ctx context.Context, records []Record) error

	// LoadSnapshot возвращает последний сохраненный снимок
	LoadSnapshot(ctx context.Context) ([]Record, error)

	// Ping проверяет доступность хранилища
	Ping(ctx context.Context) error

	// Close освобождает ресурсы хранилища
	Close() error
}

// Snapshot строит снимок всех метрик реестра
func Snapshot(reg registry.Registry) []Record {
	var records []Record
	for _, m := range reg.Meters() {
		kind := kindOf(m)
		for _, measurement := range m.Measure() {
			records = append(records, Record{
				Name:      measurement.ID.Name(),
				Kind:      kind,
				Timestamp: measurement.Timestamp,
				Value:     measurement.Value,
			})
		}
	}
	return records
}

func kindOf(m registry.Meter) string {
	switch m := m.(type) {
	case registry.Counter:
		return KindCounter
	case registry.Timer:
		return KindTimer
	case registry.DistributionSummary:
		return KindSummary
	case counterCell:
		if m.CounterCell() {
			return KindCounterCell
		}
		return KindGauge
	default:
		return KindGauge
	}
}
