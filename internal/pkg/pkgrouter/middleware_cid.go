package pkgrouter

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/shandysiswandi/gomultipart/internal/pkg/pkglog"
)

// Generator produces correlation IDs for requests that arrive without one.
type Generator interface {
	Generate() string
}

const (
	// HeaderCorrelationID is read from the request and always echoed back.
	HeaderCorrelationID = "X-Correlation-ID"
	// HeaderRequestID is accepted from proxies that only set this one.
	HeaderRequestID = "X-Request-ID"

	maxCorrelationIDLen = 128
)

// ExposedHeaders lists the response headers browser clients must be able to
// read: the part ETag for the completion manifest and the correlation ID for
// error reports.
func ExposedHeaders() []string {
	return []string{"ETag", HeaderCorrelationID}
}

func normalizeCID(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || strings.ContainsAny(v, "\r\n") {
		return ""
	}
	if len(v) > maxCorrelationIDLen {
		v = v[:maxCorrelationIDLen]
	}
	return v
}

// middlewareCorrelationID resolves the request's correlation ID, stores it for
// the logger, echoes it in the response and tags the active span with it so a
// log line and its trace can be joined.
func middlewareCorrelationID(uid Generator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cid := normalizeCID(r.Header.Get(HeaderCorrelationID))
			if cid == "" {
				cid = normalizeCID(r.Header.Get(HeaderRequestID))
			}
			if cid == "" && uid != nil {
				cid = uid.Generate()
			}
			if cid == "" {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set(HeaderCorrelationID, cid)
			trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("correlation.id", cid))

			next.ServeHTTP(w, r.WithContext(pkglog.SetCorrelationID(r.Context(), cid)))
		})
	}
}
