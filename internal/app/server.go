package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/25x8/metric-bridge/internal/bridge"
	"github.com/25x8/metric-bridge/internal/collectors"
	"github.com/25x8/metric-bridge/internal/config"
	otelexport "github.com/25x8/metric-bridge/internal/export/otel"
	"github.com/25x8/metric-bridge/internal/export/prometheus"
	"github.com/25x8/metric-bridge/internal/handler"
	"github.com/25x8/metric-bridge/internal/logger"
	"github.com/25x8/metric-bridge/internal/registry"
	"github.com/25x8/metric-bridge/internal/storage"
)

// MeterName - имя meter, под которым публикуются измерения реестра
const MeterName = "metric-bridge"

const (
	selfMonitorInterval = 10 * time.Second
	shutdownTimeout     = 10 * time.Second
)

// Server - сервер метрик: реестр, мост, хранилище и HTTP API
type Server struct {
	cfg *config.ServerConfig

	registry  *registry.MemRegistry
	services  *bridge.MetricServices
	store     storage.Storage
	collector *collectors.RuntimeCollector
	otel      *otelexport.Exporter

	httpServer *http.Server
}

// OpenStorage выбирает хранилище: Postgres, если задан DSN, иначе файл
func OpenStorage(ctx context.Context, cfg *config.ServerConfig) (storage.Storage, error) {
	if cfg.DatabaseDSN == "" {
		logger.Log.Info("Using file storage", zap.String("path", cfg.StoreFile))
		return storage.NewFileStorage(cfg.StoreFile), nil
	}

	db, err := storage.OpenDB(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	dbStorage, err := storage.NewDBStorage(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize database storage: %w", err)
	}
	logger.Log.Info("Using PostgreSQL storage")
	return dbStorage, nil
}

// NewServer собирает сервер поверх готового хранилища.
// Измерения реестра публикуются через meter; nil означает глобальный MeterProvider.
func NewServer(cfg *config.ServerConfig, store storage.Storage, meter metric.Meter) (*Server, error) {
	reg := registry.NewMemRegistry(nil)
	services := bridge.New(reg)

	if meter == nil {
		meter = otel.GetMeterProvider().Meter(MeterName)
	}
	otelExporter, err := otelexport.NewExporter(meter, reg)
	if err != nil {
		return nil, fmt.Errorf("register otel exporter: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		registry:  reg,
		services:  services,
		store:     store,
		collector: collectors.NewRuntimeCollector(services),
		otel:      otelExporter,
	}

	opts := RouterOptions{
		Key:           cfg.Key,
		TrustedSubnet: cfg.TrustedSubnet,
		Metrics:       prometheus.NewExporter(reg).Handler(),
	}
	if cfg.StoreInterval == 0 {
		opts.SyncSave = s.save
	}

	h := &handler.Handler{Services: services, Registry: reg, Storage: store}
	s.httpServer = &http.Server{
		Addr:              cfg.Address,
		Handler:           InitializeRouter(h, opts),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Handler возвращает корневой HTTP-обработчик
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Services возвращает мост, через который пишутся метрики
func (s *Server) Services() *bridge.MetricServices {
	return s.services
}

// Registry возвращает реестр сервера
func (s *Server) Registry() *registry.MemRegistry {
	return s.registry
}

func (s *Server) save(ctx context.Context) error {
	return storage.SaveRegistry(ctx, s.registry, s.store)
}

// Restore восстанавливает ячейки моста из последнего снимка
func (s *Server) Restore(ctx context.Context) error {
	restored, err := storage.Restore(ctx, s.store, s.services)
	if err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	logger.Log.Info("Restored metrics from snapshot", zap.Int("count", restored))
	return nil
}

// Run запускает фоновые задачи и HTTP-сервер и блокируется до отмены ctx.
// При остановке сервер завершает запросы и сохраняет последний снимок.
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.Restore {
		if err := s.Restore(ctx); err != nil {
			logger.Log.Error("Failed to restore metrics", zap.Error(err))
		}
	}

	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()

	var wg sync.WaitGroup
	if interval := s.cfg.StoreDuration(); interval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			storage.RunPeriodicSave(bgCtx, s.registry, s.store, interval)
		}()
	}
	if ttl := s.cfg.GaugeTTLDuration(); ttl > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.runExpiry(bgCtx, ttl)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.collector.Run(bgCtx, selfMonitorInterval, nil)
	}()

	serveErr := make(chan error, 1)
	go func() {
		logger.Log.Info("Server started", zap.String("address", s.cfg.Address))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("HTTP server shutdown failed", zap.Error(err))
	}

	// Периодическое сохранение делает финальный снимок само
	stopBackground()
	wg.Wait()
	if s.cfg.StoreInterval == 0 {
		if err := s.save(shutdownCtx); err != nil {
			logger.Log.Error("Failed to save snapshot on shutdown", zap.Error(err))
		}
	}

	if err := s.otel.Close(); err != nil {
		logger.Log.Warn("Failed to unregister otel callback", zap.Error(err))
	}
	if err := s.store.Close(); err != nil {
		logger.Log.Warn("Failed to close storage", zap.Error(err))
	}

	logger.Log.Info("Server stopped")
	return runErr
}

func (s *Server) runExpiry(ctx context.Context, ttl time.Duration) {
	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.registry.ExpireStale(ttl); removed > 0 {
				logger.Log.Debug("Expired stale gauges", zap.Int("count", removed))
			}
		}
	}
}
