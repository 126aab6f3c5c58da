package pkgrouter

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// MiddlewareBodyLimit caps the request body at maxBytes. Reads past the cap fail
// with *http.MaxBytesError, which handlers map to 413.
func MiddlewareBodyLimit(maxBytes int64) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxBytes > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// MiddlewareRateLimit limits each client IP to requests per window.
// A non-positive limit disables the middleware.
func MiddlewareRateLimit(requests int, window time.Duration) Middleware {
	if requests <= 0 || window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, errorResponse{
				Message: "too many requests",
				Error:   map[string]any{"code": "ERROR_CODE_RATE_LIMITED"},
			}, http.StatusTooManyRequests)
		}),
	)
}
