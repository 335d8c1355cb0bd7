// Package apicors provides CORS middleware for the JSON API.
//
// The API authenticates with a bearer key, not cookies, so credentials are
// never involved and any origin may call it: gallery frontends are static
// sites served from their own domains.
package apicors

import (
	"net/http"
)

// Middleware returns CORS middleware for API key authenticated endpoints.
//
// It allows any origin without credentials, permits the methods and headers
// the API uses, and answers preflight OPTIONS requests directly.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Accept")
			w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
