package logger

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

const (
	// RequestIDHeader is the header / metadata key carrying the request ID.
	RequestIDHeader = "x-request-id"
	// TraceparentHeader is the W3C trace context header / metadata key.
	TraceparentHeader = "traceparent"
)

// NewRequestID returns a fresh request ID.
func NewRequestID() string {
	return uuid.New().String()
}

// RequestIDInterceptor is a gRPC interceptor that adds a request ID to the context.
// An ID sent by the caller in x-request-id metadata is reused, and the trace ID
// of an incoming traceparent is carried along.
func RequestIDInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		requestID := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if ids := md.Get(RequestIDHeader); len(ids) > 0 {
				requestID = ids[0]
			}
			if tp := md.Get(TraceparentHeader); len(tp) > 0 {
				if traceID := TraceIDFromTraceparent(tp[0]); traceID != "" {
					ctx = WithTraceID(ctx, traceID)
				}
			}
		}
		if requestID == "" {
			requestID = NewRequestID()
		}

		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, requestID))

		return handler(WithRequestID(ctx, requestID), req)
	}
}
