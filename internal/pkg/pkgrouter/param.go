package pkgrouter

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

type routeContextKey struct{}

// GetParam reads a path parameter from the request context (as stored by httprouter).
func GetParam(ctx context.Context, key string) string {
	return httprouter.ParamsFromContext(ctx).ByName(key)
}

// RoutePattern returns the registered pattern of the matched route, for
// example "/api/upload-part/:uploadId/:partNumber".
func RoutePattern(ctx context.Context) string {
	pattern, _ := ctx.Value(routeContextKey{}).(string)
	return pattern
}

func withRoute(pattern string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), routeContextKey{}, pattern)))
	})
}
