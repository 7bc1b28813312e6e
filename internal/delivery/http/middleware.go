package httpapi

import (
	"crypto/subtle"
	"net/http"
)

const apiKeyHeader = "X-API-Key"

// requireAPIKey rejects every request when key is empty.
func requireAPIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(apiKeyHeader)
			if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized", Message: "missing or invalid API key"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
