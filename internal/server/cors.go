package server

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows cross-origin requests from origins. Preflight requests are
// answered here and never reach the router. An empty list allows no origin.
func CORS(origins []string) func(http.Handler) http.Handler {
	var denyAll func(r *http.Request, origin string) bool
	if len(origins) == 0 {
		denyAll = func(*http.Request, string) bool { return false }
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:  origins,
		AllowOriginFunc: denyAll,
		AllowedMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPut,
			http.MethodPatch, http.MethodPost, http.MethodDelete,
		},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{
			HeaderRequestID,
			"RateLimit-Policy", "RateLimit-Limit", "RateLimit-Remaining", "RateLimit-Reset",
			"Retry-After",
		},
		MaxAge: 300,
	})
}
