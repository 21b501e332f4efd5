package middleware

import (
	"compress/gzip"
	"net/http"
	"strings"
)

// compressibleTypes - типы ответов, которые имеет смысл сжимать
var compressibleTypes = []string{"application/json", "text/html", "text/plain"}

// compressWriter сжимает ответ, если его Content-Type входит в compressibleTypes.
// Решение принимается при первой записи заголовка или тела.
type compressWriter struct {
	http.ResponseWriter
	gw      *gzip.Writer
	decided bool
}

func (cw *compressWriter) decide() {
	if cw.decided {
		return
	}
	cw.decided = true

	contentType := cw.Header().Get("Content-Type")
	for _, t := range compressibleTypes {
		if strings.HasPrefix(contentType, t) {
			cw.Header().Set("Content-Encoding", "gzip")
			cw.Header().Del("Content-Length")
			cw.gw = gzip.NewWriter(cw.ResponseWriter)
			return
		}
	}
}

func (cw *compressWriter) WriteHeader(statusCode int) {
	cw.decide()
	cw.ResponseWriter.WriteHeader(statusCode)
}

func (cw *compressWriter) Write(data []byte) (int, error) {
	if cw.Header().Get("Content-Type") == "" {
		cw.Header().Set("Content-Type", http.DetectContentType(data))
	}
	cw.decide()
	if cw.gw != nil {
		return cw.gw.Write(data)
	}
	return cw.ResponseWriter.Write(data)
}

func (cw *compressWriter) Close() error {
	if cw.gw != nil {
		return cw.gw.Close()
	}
	return nil
}

// GzipMiddleware распаковывает gzip-тело запроса и сжимает ответ,
// если клиент принимает gzip
func GzipMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.Header.Get("Content-Encoding"), "gzip") {
			gr, err := gzip.NewReader(r.Body)
			if err != nil {
				http.Error(w, "Invalid gzip body", http.StatusBadRequest)
				return
			}
			defer gr.Close()
			r.Body = gr
			r.Header.Del("Content-Encoding")
		}

		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}

		cw := &compressWriter{ResponseWriter: w}
		defer cw.Close()
		next.ServeHTTP(cw, r)
	})
}
