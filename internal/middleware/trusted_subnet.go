package middleware

import (
	"net"
	"net/http"
	"strings"
)

// TrustedSubnetMiddleware пропускает только запросы из доверенной подсети.
// Пустая подсеть отключает проверку.
func TrustedSubnetMiddleware(trustedSubnet string) func(http.Handler) http.Handler {
	if trustedSubnet == "" {
		return func(next http.Handler) http.Handler { return next }
	}

	_, trustedNet, parseErr := net.ParseCIDR(trustedSubnet)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if parseErr != nil {
				http.Error(w, "Invalid trusted subnet configuration", http.StatusInternalServerError)
				return
			}

			clientIP := net.ParseIP(getClientIP(r))
			if clientIP == nil {
				http.Error(w, "Invalid client IP address", http.StatusBadRequest)
				return
			}

			if !trustedNet.Contains(clientIP) {
				http.Error(w, "Access denied from untrusted subnet", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP извлекает IP-адрес клиента: X-Real-IP, X-Forwarded-For, затем RemoteAddr
func getClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return strings.TrimSpace(ip)
	}

	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		first, _, _ := strings.Cut(ip, ",")
		return strings.TrimSpace(first)
	}

	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}

	return r.RemoteAddr
}
