package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/25x8/metric-bridge/internal/buildinfo"
	"github.com/25x8/metric-bridge/internal/client"
	"github.com/25x8/metric-bridge/internal/collectors"
	"github.com/25x8/metric-bridge/internal/config"
	"github.com/25x8/metric-bridge/internal/logger"
)

func main() {
	cfg, err := config.LoadAgentConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Initialize(cfg.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	buildinfo.Log(logger.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	services := client.NewHTTPServices(cfg.Address, cfg.Key)
	collector := collectors.NewRuntimeCollector(services)

	logger.Log.Info("Agent started",
		zap.String("address", cfg.Address),
		zap.Duration("poll_interval", cfg.PollDuration()),
	)
	collector.Run(ctx, cfg.PollDuration(), services.FlushAndLog)

	// Отправляем то, что накопилось с последнего цикла
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	services.FlushAndLog(flushCtx)
	logger.Log.Info("Agent stopped")
}
