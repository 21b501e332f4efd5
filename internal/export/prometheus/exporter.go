// Package prometheus отдает измерения реестра в текстовом формате Prometheus.
package prometheus

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/25x8/metric-bridge/internal/registry"
)

// ContentType - тип ответа текстового формата Prometheus
const ContentType = "text/plain; version=0.0.4; charset=utf-8"

// Exporter рендерит измерения реестра
type Exporter struct {
	source registry.Registry
}

// NewExporter - конструктор для Exporter
func NewExporter(source registry.Registry) *Exporter {
	return &Exporter{source: source}
}

// Handler возвращает http.Handler, отдающий метрики
func (e *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", ContentType)
		_, _ = w.Write([]byte(e.Render()))
	})
}

// Render возвращает текущие измерения. Все измерения публикуются как gauge,
// так как реестр уже отдает накопленные значения.
func (e *Exporter) Render() string {
	if e == nil || e.source == nil {
		return ""
	}
	return Render(e.source.Measurements())
}

// Render форматирует измерения в текстовом формате Prometheus
func Render(measurements []registry.Measurement) string {
	var b strings.Builder
	b.Grow(len(measurements) * 64)

	seen := make(map[string]bool, len(measurements))
	for _, m := range measurements {
		name := SanitizeName(m.ID.Name())
		if seen[name] {
			continue
		}
		seen[name] = true

		b.WriteString("# TYPE ")
		b.WriteString(name)
		b.WriteString(" gauge\n")
		b.WriteString(name)
		b.WriteByte(' ')
		b.WriteString(formatValue(m.Value))
		if m.Timestamp > 0 {
			b.WriteByte(' ')
			b.WriteString(strconv.FormatInt(m.Timestamp, 10))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// SanitizeName заменяет недопустимые для Prometheus символы на '_'
func SanitizeName(name string) string {
	if name == "" {
		return "_"
	}

	var b strings.Builder
	b.Grow(len(name) + 1)
	for i, r := range name {
		valid := r == '_' || r == ':' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(i > 0 && r >= '0' && r <= '9')
		if i == 0 && r >= '0' && r <= '9' {
			b.WriteByte('_')
			valid = true
		}
		if valid {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func formatValue(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	default:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
}
