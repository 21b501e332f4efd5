package client

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/25x8/metric-bridge/internal/bridge"
	"github.com/25x8/metric-bridge/internal/handler"
	"github.com/25x8/metric-bridge/internal/logger"
	"github.com/25x8/metric-bridge/internal/middleware"
	"github.com/25x8/metric-bridge/internal/registry"
)

func newServer(t *testing.T, key string) (*httptest.Server, *registry.MemRegistry, *bridge.MetricServices) {
	t.Helper()

	reg := registry.NewMemRegistry(nil)
	services := bridge.New(reg)
	h := &handler.Handler{Services: services, Registry: reg}

	r := mux.NewRouter()
	r.Use(middleware.GzipMiddleware)
	r.Use(middleware.HashMiddleware(key))
	r.HandleFunc("/updates/", h.HandleUpdatesBatch).Methods(http.MethodPost)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, reg, services
}

func TestHTTPServicesFlush(t *testing.T) {
	srv, reg, services := newServer(t, "secret")
	c := NewHTTPServices(srv.URL, "secret")

	c.Increment("requests")
	c.Increment("requests")
	c.Decrement("requests")
	c.Submit("load", 0.75)
	c.Increment("meter.hits")
	c.Submit("timer.latency", 250)
	assert.Equal(t, 6, c.Pending())

	require.NoError(t, c.Flush(context.Background()))
	assert.Equal(t, 0, c.Pending())

	value, ok := services.CounterValue("requests")
	require.True(t, ok)
	assert.Equal(t, int64(1), value)

	gauge, ok := services.GaugeValue("load")
	require.True(t, ok)
	assert.Equal(t, 0.75, gauge)

	assert.Equal(t, int64(1), reg.Counter("hits").Count())
	assert.Equal(t, 250*time.Millisecond, reg.Timer("latency").TotalTime())
}

func TestHTTPServicesResetIsOrdered(t *testing.T) {
	srv, _, services := newServer(t, "")
	c := NewHTTPServices(srv.URL, "")

	c.Increment("a")
	c.Increment("a")
	c.Reset("a")
	c.Increment("a")
	require.NoError(t, c.Flush(context.Background()))

	value, ok := services.CounterValue("a")
	require.True(t, ok)
	assert.Equal(t, int64(1), value)
}

func TestHTTPServicesEmptyFlush(t *testing.T) {
	c := NewHTTPServices("127.0.0.1:1", "")
	assert.NoError(t, c.Flush(context.Background()))
}

func TestHTTPServicesWrongKey(t *testing.T) {
	srv, _, services := newServer(t, "secret")
	c := NewHTTPServices(srv.URL, "other")

	c.Increment("a")
	err := c.Flush(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")

	// Неотправленные операции остаются в буфере
	assert.Equal(t, 1, c.Pending())
	_, ok := services.CounterValue("a")
	assert.False(t, ok)
}

func TestHTTPServicesRequeueKeepsOrder(t *testing.T) {
	var mu sync.Mutex
	var received [][]handler.Update
	fail := true

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		assert.Equal(t, "gzip", r.Header.Get("Content-Encoding"))
		gz, err := gzip.NewReader(r.Body)
		if !assert.NoError(t, err) {
			return
		}
		data, err := io.ReadAll(gz)
		if !assert.NoError(t, err) {
			return
		}

		var batch []handler.Update
		if assert.NoError(t, json.Unmarshal(data, &batch)) {
			received = append(received, batch)
		}
	}))
	defer srv.Close()

	c := NewHTTPServices(srv.URL, "")
	c.Increment("first")
	require.Error(t, c.Flush(context.Background()))

	c.Submit("second", 2)

	mu.Lock()
	fail = false
	mu.Unlock()
	require.NoError(t, c.Flush(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	require.Len(t, received[0], 2)
	assert.Equal(t, handler.OpIncrement, received[0][0].Op)
	assert.Equal(t, "first", received[0][0].Name)
	assert.Equal(t, handler.OpSubmit, received[0][1].Op)
	require.NotNil(t, received[0][1].Value)
	assert.Equal(t, 2.0, *received[0][1].Value)
}

func TestNewHTTPServicesAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    string
	}{
		{"Host and port", "localhost:8080", "http://localhost:8080"},
		{"With scheme", "http://localhost:8080/", "http://localhost:8080"},
		{"HTTPS", "https://metrics.local", "https://metrics.local"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewHTTPServices(tt.address, "").serverURL)
		})
	}
}

func TestHTTPServicesPendingIsCapped(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	prev := logger.Log
	logger.Log = zap.New(core)
	t.Cleanup(func() { logger.Log = prev })

	var mu sync.Mutex
	var received []handler.Update
	fail := true

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		gz, err := gzip.NewReader(r.Body)
		if !assert.NoError(t, err) {
			return
		}
		assert.NoError(t, json.NewDecoder(gz).Decode(&received))
	}))
	defer srv.Close()

	const maxPending = 5
	c := NewHTTPServices(srv.URL, "", WithMaxPending(maxPending))

	// Сервер недоступен несколько циклов подряд
	for cycle := 0; cycle < 4; cycle++ {
		for i := 0; i < 3; i++ {
			c.Submit("g", float64(cycle*3+i))
		}
		c.FlushAndLog(context.Background())
		assert.LessOrEqual(t, c.Pending(), maxPending)
	}

	assert.Equal(t, maxPending, c.Pending())
	assert.Equal(t, 12-maxPending, c.Dropped())
	assert.Equal(t, 12-maxPending, sumDropped(logs))

	mu.Lock()
	fail = false
	mu.Unlock()
	require.NoError(t, c.Flush(context.Background()))

	// Остались самые новые операции в исходном порядке
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, maxPending)
	for i, u := range received {
		require.NotNil(t, u.Value)
		assert.Equal(t, float64(12-maxPending+i), *u.Value)
	}
}

func sumDropped(logs *observer.ObservedLogs) int {
	total := 0
	for _, entry := range logs.FilterMessage("Dropped oldest pending operations").All() {
		total += int(entry.ContextMap()["dropped"].(int64))
	}
	return total
}

func TestWithMaxPendingIgnoresNonPositive(t *testing.T) {
	c := NewHTTPServices("localhost:8080", "", WithMaxPending(0))
	assert.Equal(t, DefaultMaxPending, c.maxPending)
}
