package middleware

import (
	"crypto/subtle"
	"net/http"
)

// APIKeyAuth пропускает только запросы с верным заголовком x-api-key.
// Если ключ не сконфигурирован, проверка выключена.
func APIKeyAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if apiKey == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := r.Header.Get("x-api-key")
			if subtle.ConstantTimeCompare([]byte(clientKey), []byte(apiKey)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"message": "Unauthorized: Missing or invalid API key.", "access": "Denied"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
