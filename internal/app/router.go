package app

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/25x8/metric-bridge/internal/handler"
	"github.com/25x8/metric-bridge/internal/logger"
	"github.com/25x8/metric-bridge/internal/middleware"
)

// RouterOptions - параметры маршрутизатора
type RouterOptions struct {
	Key           string
	TrustedSubnet string
	// Metrics отдает метрики в формате Prometheus, nil отключает /metrics
	Metrics http.Handler
	// SyncSave вызывается после каждого изменяющего запроса
	SyncSave func(context.Context) error
}

// InitializeRouter собирает маршруты HTTP API
func InitializeRouter(h *handler.Handler, opts RouterOptions) *mux.Router {
	r := mux.NewRouter()

	trusted := middleware.TrustedSubnetMiddleware(opts.TrustedSubnet)
	withHash := middleware.HashMiddleware(opts.Key)

	wrapHandler := func(next http.Handler) http.Handler {
		return trusted(
			middleware.GzipMiddleware(
				logger.RequestLogger(
					withHash(next),
				),
			),
		)
	}

	mutating := func(fn http.HandlerFunc) http.Handler {
		if opts.SyncSave == nil {
			return wrapHandler(fn)
		}
		return wrapHandler(syncSave(fn, opts.SyncSave))
	}

	// Устаревшие операции
	r.Handle("/increment/{name}", mutating(h.HandleIncrement)).Methods(http.MethodPost)
	r.Handle("/decrement/{name}", mutating(h.HandleDecrement)).Methods(http.MethodPost)
	r.Handle("/submit/{name}/{value}", mutating(h.HandleSubmit)).Methods(http.MethodPost)
	r.Handle("/reset/{name}", mutating(h.HandleReset)).Methods(http.MethodPost)
	r.Handle("/updates/", mutating(h.HandleUpdatesBatch)).Methods(http.MethodPost)

	// Чтение
	r.Handle("/value/{name}", wrapHandler(http.HandlerFunc(h.HandleGetValue))).Methods(http.MethodGet)
	r.Handle("/", wrapHandler(http.HandlerFunc(h.HandleGetAllMetrics))).Methods(http.MethodGet)
	r.Handle("/ping", wrapHandler(http.HandlerFunc(h.HandlePing))).Methods(http.MethodGet)
	if opts.Metrics != nil {
		r.Handle("/metrics", wrapHandler(opts.Metrics)).Methods(http.MethodGet)
	}

	return r
}

// syncSave сохраняет снимок после обработки запроса
func syncSave(next http.HandlerFunc, save func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		next(w, r)
		if err := save(r.Context()); err != nil {
			logger.Log.Error("Failed to save snapshot", zap.Error(err))
		}
	}
}

