package ratelimit

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shelterflex/shelterflex-backend/internal/domain"
	"github.com/shelterflex/shelterflex-backend/internal/server"
)

// KeyFunc identifies the client a request is counted against.
type KeyFunc func(r *http.Request) string

// Recorder observes rejected requests.
type Recorder interface {
	CountRateLimited()
}

type Options struct {
	Store  Store
	Limit  int
	Window time.Duration

	// KeyFn defaults to DefaultKeyFunc(TrustProxy).
	KeyFn      KeyFunc
	TrustProxy bool

	// OnError renders rejections and store failures.
	OnError server.ErrorFunc

	// Metrics is optional.
	Metrics Recorder
}

// DefaultKeyFunc keys requests by remote address host. When trustProxy is
// set, the first X-Forwarded-For entry wins.
func DefaultKeyFunc(trustProxy bool) KeyFunc {
	return func(r *http.Request) string {
		if trustProxy {
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return ip
				}
			}
		}

		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

// Middleware enforces opts.Limit requests per opts.Window for each client and
// sets the RateLimit-* headers on every response it passes or rejects.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.TrustProxy)
	}
	policy := strconv.Itoa(opts.Limit) + ";w=" + strconv.FormatInt(ceilSeconds(opts.Window), 10)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := opts.Store.Hit(r.Context(), opts.KeyFn(r), opts.Window)
			if err != nil {
				opts.OnError(w, r, err)
				return
			}

			remaining := int64(opts.Limit) - res.Count
			if remaining < 0 {
				remaining = 0
			}
			reset := strconv.FormatInt(ceilSeconds(res.ResetIn), 10)

			h := w.Header()
			h.Set("RateLimit-Policy", policy)
			h.Set("RateLimit-Limit", strconv.Itoa(opts.Limit))
			h.Set("RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			h.Set("RateLimit-Reset", reset)

			if res.Count > int64(opts.Limit) {
				h.Set("Retry-After", reset)
				if opts.Metrics != nil {
					opts.Metrics.CountRateLimited()
				}
				opts.OnError(w, r, domain.TooManyRequests())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(math.Ceil(d.Seconds()))
}
