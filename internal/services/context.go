package services

import "context"

type contextKey string

const (
	itemIDKey    contextKey = "item_id"
	componentKey contextKey = "component"
	requestIDKey contextKey = "request_id"
)

// WithItemID annotates context with the book item identifier.
func WithItemID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, itemIDKey, id)
}

// ItemIDFromContext extracts the book item identifier if present.
func ItemIDFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(itemIDKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithComponent annotates context with the owning component name
// (optimizer, planner, syncer).
func WithComponent(ctx context.Context, component string) context.Context {
	if component == "" {
		return ctx
	}
	return context.WithValue(ctx, componentKey, component)
}

// ComponentFromContext returns the component name if present.
func ComponentFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(componentKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(requestIDKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}
