package interceptors

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

type contextKey string

const (
	// SessionContextKey is the key used to store/retrieve the caller session.
	SessionContextKey contextKey = "relay_session"

	// SessionMetadataKey is the wire metadata key clients attach the session
	// under.
	SessionMetadataKey = "x-relay-session"
)

// NewStreamSessionInterceptor lifts the caller session out of the incoming
// metadata before the stream handler opens, so handlers read it from context
// instead of touching transport metadata.
func NewStreamSessionInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx := ss.Context()

		session := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get(SessionMetadataKey); len(vals) > 0 {
				session = vals[0]
			}
		}

		wrapped := &wrappedStream{
			ServerStream: ss,
			ctx:          context.WithValue(ctx, SessionContextKey, session),
		}
		return handler(srv, wrapped)
	}
}

// NewUnarySessionInterceptor is the unary-shaped twin.
func NewUnarySessionInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		session := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get(SessionMetadataKey); len(vals) > 0 {
				session = vals[0]
			}
		}
		return handler(context.WithValue(ctx, SessionContextKey, session), req)
	}
}

// wrappedStream is a thin wrapper to inject a new context into a gRPC stream.
type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context {
	return w.ctx
}

// GetSession extracts the caller session from context; empty when absent.
func GetSession(ctx context.Context) string {
	session, _ := ctx.Value(SessionContextKey).(string)
	return session
}
