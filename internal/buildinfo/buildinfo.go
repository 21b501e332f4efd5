// Package buildinfo хранит сведения о сборке, задаваемые через -ldflags:
//
//	go build -ldflags "-X github.com/25x8/metric-bridge/internal/buildinfo.BuildVersion=v1.0.0"
package buildinfo

import "go.uber.org/zap"

var (
	BuildVersion = "N/A"
	BuildDate    = "N/A"
	BuildCommit  = "N/A"
)

// Fields возвращает сведения о сборке в виде полей лога
func Fields() []zap.Field {
	return []zap.Field{
		zap.String("version", BuildVersion),
		zap.String("date", BuildDate),
		zap.String("commit", BuildCommit),
	}
}

// Log пишет сведения о сборке в лог
func Log(log *zap.Logger) {
	log.Info("Build info", Fields()...)
}
