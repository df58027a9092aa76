package common

import (
	"context"
)

// ContextKey is the private type for context values set by this package
type ContextKey string

const (
	// ContextKeyRequestID carries the id correlating one user gesture across
	// the bridge, the coordinator, and the backend call it triggers
	ContextKeyRequestID ContextKey = "request_id"

	// ContextKeyFlow carries the flow name a backend call belongs to
	ContextKeyFlow ContextKey = "flow"
)

// WithRequestID adds a request id to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// GetRequestID extracts the request id from the context
func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(ContextKeyRequestID).(string)
	return requestID, ok
}

// WithFlow adds a flow name to the context
func WithFlow(ctx context.Context, flow string) context.Context {
	return context.WithValue(ctx, ContextKeyFlow, flow)
}

// GetFlow extracts the flow name from the context
func GetFlow(ctx context.Context) (string, bool) {
	flow, ok := ctx.Value(ContextKeyFlow).(string)
	return flow, ok
}
