package obs

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type routeKey struct{}

// WithRoutePattern pins the route label used by metrics, spans and request logs.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	return context.WithValue(ctx, routeKey{}, pattern)
}

// RouteLabel returns the route template for r. chi fills its route context
// while routing, so outer middleware must call this after next.ServeHTTP.
// Unmatched requests collapse to fallback to keep label cardinality bounded.
func RouteLabel(r *http.Request, fallback string) string {
	if v, ok := r.Context().Value(routeKey{}).(string); ok && v != "" {
		return v
	}
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return fallback
}
