package goguard

import "context"

type correlationIDContextKey struct{}
type originRouteContextKey struct{}

// WithCorrelationID attaches a caller-chosen correlation identifier to ctx.
// Events emitted while handling the call carry it; when absent, a random
// UUID is generated per event chain.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDContextKey{}, id)
}

// WithOriginRoute attaches the route that initiated the current operation
// to ctx. Used for event metadata only; it never affects the verdict.
func WithOriginRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, originRouteContextKey{}, route)
}

func correlationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(correlationIDContextKey{}).(string)
	return id
}

func originRouteFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	route, _ := ctx.Value(originRouteContextKey{}).(string)
	return route
}
