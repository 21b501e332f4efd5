// Package client реализует устаревшие сервисы счетчиков и gauge поверх HTTP API сервера.
// Операции копятся в буфере и отправляются пакетом в Flush.
package client

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/25x8/metric-bridge/internal/bridge"
	"github.com/25x8/metric-bridge/internal/handler"
	"github.com/25x8/metric-bridge/internal/logger"
	"github.com/25x8/metric-bridge/internal/middleware"
)

// DefaultMaxPending - сколько операций клиент держит в буфере, пока сервер недоступен
const DefaultMaxPending = 10000

// HTTPServices - клиент сервера метрик
type HTTPServices struct {
	serverURL  string
	key        string
	client     *http.Client
	maxPending int

	mu       sync.Mutex
	pending  []handler.Update
	dropped  int
	reported int

	ipOnce  sync.Once
	localIP string
}

var _ bridge.Services = (*HTTPServices)(nil)

// Option настраивает HTTPServices
type Option func(*HTTPServices)

// WithMaxPending ограничивает буфер n операциями. При переполнении
// отбрасываются самые старые. n <= 0 оставляет значение по умолчанию.
func WithMaxPending(n int) Option {
	return func(s *HTTPServices) {
		if n > 0 {
			s.maxPending = n
		}
	}
}

// NewHTTPServices - конструктор для HTTPServices.
// Адрес без схемы дополняется http://.
func NewHTTPServices(address, key string, opts ...Option) *HTTPServices {
	if !strings.HasPrefix(address, "http://") && !strings.HasPrefix(address, "https://") {
		address = "http://" + address
	}
	s := &HTTPServices{
		serverURL:  strings.TrimSuffix(address, "/"),
		key:        key,
		client:     &http.Client{Timeout: 10 * time.Second},
		maxPending: DefaultMaxPending,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTTPServices) Increment(name string) {
	s.enqueue(handler.Update{Op: handler.OpIncrement, Name: name})
}

func (s *HTTPServices) Decrement(name string) {
	s.enqueue(handler.Update{Op: handler.OpDecrement, Name: name})
}

func (s *HTTPServices) Submit(name string, value float64) {
	s.enqueue(handler.Update{Op: handler.OpSubmit, Name: name, Value: &value})
}

func (s *HTTPServices) Reset(name string) {
	s.enqueue(handler.Update{Op: handler.OpReset, Name: name})
}

func (s *HTTPServices) enqueue(u handler.Update) {
	s.mu.Lock()
	s.pending = append(s.pending, u)
	s.trimLocked()
	s.mu.Unlock()
}

// trimLocked отбрасывает самые старые операции сверх maxPending
func (s *HTTPServices) trimLocked() {
	if over := len(s.pending) - s.maxPending; over > 0 {
		s.pending = s.pending[over:]
		s.dropped += over
	}
}

// Pending возвращает число неотправленных операций
func (s *HTTPServices) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Flush отправляет накопленные операции одним пакетом.
// При ошибке операции возвращаются в начало буфера.
func (s *HTTPServices) Flush(ctx context.Context) error {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	if err := s.send(ctx, batch); err != nil {
		s.mu.Lock()
		s.pending = append(batch, s.pending...)
		s.trimLocked()
		s.mu.Unlock()
		return err
	}
	return nil
}

// Dropped возвращает число операций, отброшенных из-за переполнения буфера
func (s *HTTPServices) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// FlushAndLog вызывает Flush и пишет ошибку в лог.
// Отброшенные с прошлого вызова операции попадают в предупреждение.
func (s *HTTPServices) FlushAndLog(ctx context.Context) {
	if err := s.Flush(ctx); err != nil {
		logger.Log.Error("Failed to send metrics", zap.Error(err), zap.Int("pending", s.Pending()))
	}

	s.mu.Lock()
	dropped := s.dropped - s.reported
	s.reported = s.dropped
	s.mu.Unlock()
	if dropped > 0 {
		logger.Log.Warn("Dropped oldest pending operations",
			zap.Int("dropped", dropped),
			zap.Int("max_pending", s.maxPending),
		)
	}
}

func (s *HTTPServices) send(ctx context.Context, batch []handler.Update) error {
	jsonData, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	var compressedBody bytes.Buffer
	gzipWriter := gzip.NewWriter(&compressedBody)
	if _, err := gzipWriter.Write(jsonData); err != nil {
		return fmt.Errorf("compress batch: %w", err)
	}
	if err := gzipWriter.Close(); err != nil {
		return fmt.Errorf("compress batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.serverURL+"/updates/", &compressedBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	req.Header.Set("Accept-Encoding", "gzip")

	// Подпись считается по несжатому телу: сервер проверяет ее после распаковки
	if s.key != "" {
		req.Header.Set(middleware.HashHeader, middleware.CalculateHash(jsonData, s.key))
	}
	if ip := s.realIP(); ip != "" {
		req.Header.Set("X-Real-IP", ip)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status: %s", resp.Status)
	}

	logger.Log.Debug("Metrics sent", zap.Int("count", len(batch)))
	return nil
}

// realIP определяет локальный адрес, с которого агент ходит на сервер
func (s *HTTPServices) realIP() string {
	s.ipOnce.Do(func() {
		u, err := url.Parse(s.serverURL)
		if err != nil {
			return
		}
		host := u.Host
		if u.Port() == "" {
			host = net.JoinHostPort(u.Hostname(), "80")
		}
		conn, err := net.Dial("udp", host)
		if err != nil {
			logger.Log.Debug("Failed to detect local IP", zap.Error(err))
			return
		}
		defer conn.Close()
		if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
			s.localIP = addr.IP.String()
		}
	})
	return s.localIP
}
