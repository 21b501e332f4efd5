package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
)

// HashHeader - заголовок с HMAC-SHA256 подписью тела запроса
const HashHeader = "HashSHA256"

// CalculateHash вычисляет HMAC-SHA256 от данных с использованием ключа
func CalculateHash(data []byte, key string) string {
	h := hmac.New(sha256.New, []byte(key))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// HashMiddleware проверяет подпись тела запроса. Пустой ключ отключает проверку.
// Запросы без тела (например, GET) не проверяются.
func HashMiddleware(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" || r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			hashHeader := r.Header.Get(HashHeader)
			if hashHeader == "" {
				http.Error(w, "Missing HashSHA256 header", http.StatusBadRequest)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				http.Error(w, "Error reading request body", http.StatusInternalServerError)
				return
			}
			r.Body.Close()

			expectedHash := CalculateHash(body, key)
			if !hmac.Equal([]byte(hashHeader), []byte(expectedHash)) {
				http.Error(w, "Invalid hash", http.StatusBadRequest)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			w.Header().Set(HashHeader, expectedHash)
			next.ServeHTTP(w, r)
		})
	}
}
