package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/25x8/metric-bridge/internal/app"
	"github.com/25x8/metric-bridge/internal/buildinfo"
	"github.com/25x8/metric-bridge/internal/config"
	otelexport "github.com/25x8/metric-bridge/internal/export/otel"
	"github.com/25x8/metric-bridge/internal/logger"
)

func main() {
	cfg, err := config.LoadServerConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Initialize(cfg.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	buildinfo.Log(logger.Log)

	if err := run(cfg); err != nil {
		logger.Log.Fatal("Server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.ServerConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	// Без MeterProvider из SDK глобальный provider ничего не собирает
	var meter metric.Meter
	if interval := cfg.OTelDuration(); interval > 0 {
		provider := otelexport.NewMeterProvider(logger.Log, interval)
		otel.SetMeterProvider(provider)
		meter = provider.Meter(app.MeterName)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				logger.Log.Warn("Failed to shut down meter provider", zap.Error(err))
			}
		}()
	}

	store, err := app.OpenStorage(ctx, cfg)
	if err != nil {
		return err
	}

	server, err := app.NewServer(cfg, store, meter)
	if err != nil {
		_ = store.Close()
		return err
	}

	return server.Run(ctx)
}
