package collectors

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"go.uber.org/zap"

	"github.com/25x8/metric-bridge/internal/bridge"
	"github.com/25x8/metric-bridge/internal/logger"
)

// Имена метрик, которые пишет коллектор
const (
	PollCountMetric = "meter.poll_count"
	GCPauseMetric   = "histogram.gc_pause_ns"
	CollectMetric   = "timer.collect"
)

// RuntimeCollector собирает метрики рантайма Go и хоста и пишет их
// через устаревшие сервисы счетчиков и gauge
type RuntimeCollector struct {
	services bridge.Services

	mu        sync.Mutex
	lastNumGC uint32

	// источники метрик хоста, подменяются в тестах
	cpuPercent    func(ctx context.Context, interval time.Duration, percpu bool) ([]float64, error)
	virtualMemory func(ctx context.Context) (*mem.VirtualMemoryStat, error)
}

// NewRuntimeCollector - конструктор для RuntimeCollector
func NewRuntimeCollector(services bridge.Services) *RuntimeCollector {
	return &RuntimeCollector{
		services:      services,
		cpuPercent:    cpu.PercentWithContext,
		virtualMemory: mem.VirtualMemoryWithContext,
	}
}

// Collect выполняет один цикл сбора
func (c *RuntimeCollector) Collect(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()

	c.collectRuntime()
	c.collectHost(ctx)

	c.services.Increment(PollCountMetric)
	c.services.Submit(CollectMetric, float64(time.Since(start).Milliseconds()))
}

func (c *RuntimeCollector) collectRuntime() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	gauges := map[string]float64{
		"Alloc":         float64(ms.Alloc),
		"BuckHashSys":   float64(ms.BuckHashSys),
		"Frees":         float64(ms.Frees),
		"GCCPUFraction": ms.GCCPUFraction,
		"GCSys":         float64(ms.GCSys),
		"HeapAlloc":     float64(ms.HeapAlloc),
		"HeapIdle":      float64(ms.HeapIdle),
		"HeapInuse":     float64(ms.HeapInuse),
		"HeapObjects":   float64(ms.HeapObjects),
		"HeapReleased":  float64(ms.HeapReleased),
		"HeapSys":       float64(ms.HeapSys),
		"LastGC":        float64(ms.LastGC),
		"Lookups":       float64(ms.Lookups),
		"MCacheInuse":   float64(ms.MCacheInuse),
		"MCacheSys":     float64(ms.MCacheSys),
		"MSpanInuse":    float64(ms.MSpanInuse),
		"MSpanSys":      float64(ms.MSpanSys),
		"Mallocs":       float64(ms.Mallocs),
		"NextGC":        float64(ms.NextGC),
		"NumForcedGC":   float64(ms.NumForcedGC),
		"NumGC":         float64(ms.NumGC),
		"NumGoroutine":  float64(runtime.NumGoroutine()),
		"OtherSys":      float64(ms.OtherSys),
		"PauseTotalNs":  float64(ms.PauseTotalNs),
		"StackInuse":    float64(ms.StackInuse),
		"StackSys":      float64(ms.StackSys),
		"Sys":           float64(ms.Sys),
		"TotalAlloc":    float64(ms.TotalAlloc),
	}
	for name, value := range gauges {
		c.services.Submit(name, value)
	}

	// Паузы сборок, прошедших с прошлого цикла (кольцевой буфер на 256 записей)
	if ms.NumGC > c.lastNumGC {
		from := c.lastNumGC
		if ms.NumGC-from > uint32(len(ms.PauseNs)) {
			from = ms.NumGC - uint32(len(ms.PauseNs))
		}
		for gc := from + 1; gc <= ms.NumGC; gc++ {
			c.services.Submit(GCPauseMetric, float64(ms.PauseNs[(gc+255)%256]))
		}
		c.lastNumGC = ms.NumGC
	}
}

func (c *RuntimeCollector) collectHost(ctx context.Context) {
	if vm, err := c.virtualMemory(ctx); err != nil {
		logger.Log.Warn("Failed to read virtual memory stats", zap.Error(err))
	} else {
		c.services.Submit("TotalMemory", float64(vm.Total))
		c.services.Submit("FreeMemory", float64(vm.Free))
	}

	percents, err := c.cpuPercent(ctx, 0, true)
	if err != nil {
		logger.Log.Warn("Failed to read CPU utilization", zap.Error(err))
		return
	}
	for i, p := range percents {
		c.services.Submit(fmt.Sprintf("CPUutilization%d", i+1), p)
	}
}

// Run собирает метрики каждые interval, пока не отменен ctx.
// После каждого цикла вызывается afterCollect, если он задан.
func (c *RuntimeCollector) Run(ctx context.Context, interval time.Duration, afterCollect func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Collect(ctx)
			if afterCollect != nil {
				afterCollect(ctx)
			}
		}
	}
}
