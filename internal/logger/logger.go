package logger

import (
	"net/http"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log доступен всему коду как синглтон.
// Модифицировать переменную может только Initialize (и тесты).
// По умолчанию установлен no-op-логер.
var Log *zap.Logger = zap.NewNop()

// Initialize инициализирует синглтон логера с указанным уровнем логирования
func Initialize(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      zapcore.OmitKey,
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  zapcore.OmitKey,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	cfg := zap.Config{
		Level:            lvl,
		Development:      false,
		Sampling:         nil,
		Encoding:         "json",
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	zl, err := cfg.Build(zap.WithCaller(false))
	if err != nil {
		return err
	}
	Log = zl
	return nil
}

// Sync сбрасывает буферы логгера
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}

// RequestLogger - middleware-логер для входящих HTTP-запросов.
// Ответы 4xx пишутся с уровнем warn, 5xx - с уровнем error.
func RequestLogger(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := &responseWriterWrapper{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		h.ServeHTTP(ww, r)

		fields := []zap.Field{
			zap.String("uri", r.RequestURI),
			zap.String("method", r.Method),
			zap.Duration("duration", time.Since(start)),
			zap.Int("status", ww.statusCode),
			zap.Int("size", ww.responseSize),
		}

		switch {
		case ww.statusCode >= http.StatusInternalServerError:
			Log.Error("Request", fields...)
		case ww.statusCode >= http.StatusBadRequest:
			Log.Warn("Request", fields...)
		default:
			Log.Info("Request", fields...)
		}
	})
}

type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode   int
	responseSize int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriterWrapper) Write(data []byte) (int, error) {
	size, err := w.ResponseWriter.Write(data)
	w.responseSize += size
	return size, err
}
