package bridge

import (
	"strconv"
	"testing"

	"github.com/25x8/metric-bridge/internal/registry"
)

func BenchmarkIncrement(b *testing.B) {
	s := New(registry.NewMemRegistry(nil))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Increment("requests")
	}
}

func BenchmarkIncrementParallel(b *testing.B) {
	s := New(registry.NewMemRegistry(nil))

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			s.Increment("requests")
		}
	})
}

func BenchmarkSubmit(b *testing.B) {
	s := New(registry.NewMemRegistry(nil))

	// Набор имен, чтобы часть обращений шла в существующие ячейки
	names := make([]string, 64)
	for i := range names {
		names[i] = "gauge" + strconv.Itoa(i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Submit(names[i%len(names)], float64(i))
	}
}

func BenchmarkSubmitTimer(b *testing.B) {
	s := New(registry.NewMemRegistry(nil))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Submit("timer.request", 12.5)
	}
}
