package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// RequestRecorder observes completed requests.
type RequestRecorder interface {
	ObserveRequest(method, route string, status int, elapsed time.Duration)
}

// MetricsMiddleware reports every request to rec, labelled with the matched
// chi route pattern. Unmatched requests are labelled "unmatched".
func MetricsMiddleware(rec RequestRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			rec.ObserveRequest(r.Method, route, wrapped.statusCode, time.Since(start))
		})
	}
}
