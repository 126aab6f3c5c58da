package pkglog

import "context"

type correlationIDKey struct{}

// MissingCorrelationID is returned by GetCorrelationID when the context has none.
const MissingCorrelationID = "[invalid_chain_id]"

// GetCorrelationID returns the correlation ID the router middleware stored in ctx.
func GetCorrelationID(ctx context.Context) string {
	if cid, ok := ctx.Value(correlationIDKey{}).(string); ok && cid != "" {
		return cid
	}
	return MissingCorrelationID
}

// SetCorrelationID returns a copy of ctx carrying cid.
func SetCorrelationID(ctx context.Context, cid string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, cid)
}
