package csevents_api

import (
	"crypto/subtle"
	"net/http"

	"ms-csevents/internal/logger"
	"ms-csevents/internal/utils"
)

const APIKeyHeader = "X-API-Key"

// RequireAPIKey guards a route with a shared secret. An empty key leaves the
// route open.
func RequireAPIKey(key string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get(APIKeyHeader)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
				if log != nil {
					log.LogSecurity("API_KEY_REJECTED", r.Method+" "+r.URL.Path+" from "+r.RemoteAddr)
				}
				utils.WriteError(w, http.StatusUnauthorized, "Unauthorized", "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
