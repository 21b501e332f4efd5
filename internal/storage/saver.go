package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/25x8/metric-bridge/internal/bridge"
	"github.com/25x8/metric-bridge/internal/logger"
	"github.com/25x8/metric-bridge/internal/registry"
)

// SaveRegistry сохраняет текущий снимок реестра
func SaveRegistry(ctx context.Context, reg registry.Registry, store Storage) error {
	return store.SaveSnapshot(ctx, Snapshot(reg))
}

// RunPeriodicSave сохраняет снимок реестра каждые interval.
// После отмены ctx выполняется последнее сохранение.
func RunPeriodicSave(ctx context.Context, reg registry.Registry, store Storage, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := SaveRegistry(ctx, reg, store); err != nil {
				logger.Log.Error("Error saving registry snapshot", zap.Error(err))
			}
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := SaveRegistry(flushCtx, reg, store); err != nil {
				logger.Log.Error("Error saving registry snapshot on shutdown", zap.Error(err))
			}
			cancel()
			return
		}
	}
}

// RestoreTarget - мост, в который восстанавливается снимок
type RestoreTarget interface {
	bridge.GaugeService
	SeedCounter(name string, value int64)
}

// Restore загружает последний снимок и возвращает в мост ячейки gauge и счетчиков.
// Счетчики, таймеры и summary реестра не восстанавливаются: их накопленные
// значения принадлежат реестру, а не мосту.
func Restore(ctx context.Context, store Storage, services RestoreTarget) (int, error) {
	records, err := store.LoadSnapshot(ctx)
	if err != nil {
		return 0, fmt.Errorf("restore snapshot: %w", err)
	}

	restored := 0
	for _, r := range records {
		switch {
		case r.Kind == KindCounterCell:
			services.SeedCounter(r.Name, int64(r.Value))
		case r.Kind == KindGauge && !hasRoutingPrefix(r.Name):
			services.Submit(r.Name, r.Value)
		default:
			continue
		}
		restored++
	}
	return restored, nil
}

// hasRoutingPrefix сообщает, изменит ли Submit маршрут метрики по ее имени
func hasRoutingPrefix(name string) bool {
	return strings.HasPrefix(name, bridge.PrefixHistogram) ||
		strings.HasPrefix(name, bridge.PrefixTimer)
}
