package context

import (
	"context"

	"github.com/google/uuid"
)

// maxIDLength bounds ids accepted from request headers.
const maxIDLength = 128

// TraceContext identifies one request in logs and error bodies.
type TraceContext struct {
	TraceID   string
	SpanID    string
	RequestID string
}

// NewTraceContext keeps the request and trace ids propagated by the caller
// and generates the missing or malformed ones. The span id is always new.
func NewTraceContext(requestID, traceID string) *TraceContext {
	return &TraceContext{
		TraceID:   idOrNew(traceID),
		SpanID:    uuid.New().String()[:16],
		RequestID: idOrNew(requestID),
	}
}

func idOrNew(id string) string {
	if id == "" || len(id) > maxIDLength {
		return uuid.New().String()
	}
	for _, r := range id {
		if r < 0x21 || r > 0x7e {
			return uuid.New().String()
		}
	}
	return id
}

type traceContextKey struct{}

// WithTrace adds TraceContext to context.
func WithTrace(ctx context.Context, trace *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, trace)
}

// GetTrace returns TraceContext from context.
func GetTrace(ctx context.Context) *TraceContext {
	if v, ok := ctx.Value(traceContextKey{}).(*TraceContext); ok {
		return v
	}
	return nil
}

// GetRequestID returns the request id from context or empty string.
func GetRequestID(ctx context.Context) string {
	if t := GetTrace(ctx); t != nil {
		return t.RequestID
	}
	return ""
}
