package handler

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/25x8/metric-bridge/internal/bridge"
	"github.com/25x8/metric-bridge/internal/logger"
	"github.com/25x8/metric-bridge/internal/registry"
	"github.com/25x8/metric-bridge/internal/storage"
)

// Операции пакетного обновления
const (
	OpIncrement = "increment"
	OpDecrement = "decrement"
	OpSubmit    = "submit"
	OpReset     = "reset"
)

// Services - мост между устаревшими сервисами и реестром
type Services interface {
	bridge.Services
	CounterValue(name string) (int64, bool)
	GaugeValue(name string) (float64, bool)
}

type Handler struct {
	Services Services
	Registry registry.Registry
	Storage  storage.Storage
}

// Update - элемент пакетного обновления
type Update struct {
	Op    string   `json:"op"`
	Name  string   `json:"name"`
	Value *float64 `json:"value,omitempty"`
}

// Value - ответ на запрос значения метрики
type Value struct {
	Name    string   `json:"name"`
	Counter *int64   `json:"counter,omitempty"`
	Gauge   *float64 `json:"gauge,omitempty"`
}

var metricsPage = template.Must(template.New("metrics").Parse(`
<html>
<head><title>Metrics</title></head>
<body>
	<h1>All Metrics</h1>
	<table border="1">
		<tr>
			<th>Name</th>
			<th>Value</th>
			<th>Timestamp</th>
		</tr>
		{{range .}}
		<tr>
			<td>{{.ID.Name}}</td>
			<td>{{.Value}}</td>
			<td>{{.Timestamp}}</td>
		</tr>
		{{end}}
	</table>
</body>
</html>
`))

// HandleIncrement - POST /increment/{name}
func (h *Handler) HandleIncrement(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	h.Services.Increment(name)
	writeOK(w, name)
}

// HandleDecrement - POST /decrement/{name}
func (h *Handler) HandleDecrement(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	h.Services.Decrement(name)
	writeOK(w, name)
}

// HandleSubmit - POST /submit/{name}/{value}
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]

	value, err := strconv.ParseFloat(vars["value"], 64)
	if err != nil {
		http.Error(w, "Invalid metric value", http.StatusBadRequest)
		return
	}

	h.Services.Submit(name, value)
	writeOK(w, name)
}

// HandleReset - POST /reset/{name}
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	h.Services.Reset(name)
	writeOK(w, name)
}

func writeOK(w http.ResponseWriter, name string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "Metric %s updated", name)
}

// HandleUpdatesBatch - POST /updates/. Пакет проверяется целиком
// до применения, поэтому ошибочный пакет не применяется частично.
func (h *Handler) HandleUpdatesBatch(w http.ResponseWriter, r *http.Request) {
	var updates []Update
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if len(updates) == 0 {
		http.Error(w, "Empty updates batch", http.StatusBadRequest)
		return
	}

	for i, u := range updates {
		if err := validateUpdate(u); err != nil {
			http.Error(w, fmt.Sprintf("Update %d: %v", i, err), http.StatusBadRequest)
			return
		}
	}

	for _, u := range updates {
		switch u.Op {
		case OpIncrement:
			h.Services.Increment(u.Name)
		case OpDecrement:
			h.Services.Decrement(u.Name)
		case OpSubmit:
			h.Services.Submit(u.Name, *u.Value)
		case OpReset:
			h.Services.Reset(u.Name)
		}
	}

	logger.Log.Debug("Applied updates batch", zap.Int("size", len(updates)))
	w.WriteHeader(http.StatusOK)
}

func validateUpdate(u Update) error {
	if u.Name == "" {
		return fmt.Errorf("name is required")
	}

	switch u.Op {
	case OpIncrement, OpDecrement, OpReset:
		return nil
	case OpSubmit:
		if u.Value == nil {
			return fmt.Errorf("value is required for submit")
		}
		return nil
	default:
		return fmt.Errorf("unknown op %q", u.Op)
	}
}

// HandleGetValue - GET /value/{name}. Возвращает значения ячеек моста.
func (h *Handler) HandleGetValue(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	v := Value{Name: name}
	if counter, ok := h.Services.CounterValue(name); ok {
		v.Counter = &counter
	}
	if gauge, ok := h.Services.GaugeValue(name); ok {
		v.Gauge = &gauge
	}

	if v.Counter == nil && v.Gauge == nil {
		http.Error(w, "Metric not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Error("Error encoding value", zap.Error(err))
	}
}

// HandleGetAllMetrics - GET /, все измерения реестра в виде HTML
func (h *Handler) HandleGetAllMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := metricsPage.Execute(w, h.Registry.Measurements()); err != nil {
		logger.Log.Error("Error rendering metrics page", zap.Error(err))
	}
}

// HandlePing - GET /ping, проверка хранилища
func (h *Handler) HandlePing(w http.ResponseWriter, r *http.Request) {
	if h.Storage == nil {
		http.Error(w, "Storage is not initialized", http.StatusInternalServerError)
		return
	}

	if err := h.Storage.Ping(r.Context()); err != nil {
		logger.Log.Warn("Storage ping failed", zap.Error(err))
		http.Error(w, "Storage is unavailable", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
