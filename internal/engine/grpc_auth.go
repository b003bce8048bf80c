package engine

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/xela07ax/agentvault/internal/infra/auth"
)

// UnaryAuthInterceptor verifies the bearer token in the call metadata and
// puts the claims and a trace id into the context.
func UnaryAuthInterceptor(v auth.TokenValidator) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		// 1. Metadata
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Errorf(codes.Unauthenticated, "missing metadata")
		}

		// 2. Token (gRPC header names are lower case)
		tokens := md.Get("authorization")
		if len(tokens) == 0 {
			return nil, status.Errorf(codes.Unauthenticated, "missing access token")
		}

		claims, err := v.VerifyToken(tokens[0])
		if err != nil {
			return nil, status.Errorf(codes.Unauthenticated, "invalid access token")
		}

		// 3. Trace id
		traceID := uuid.NewString()
		if ids := md.Get("x-trace-id"); len(ids) > 0 && ids[0] != "" {
			traceID = ids[0]
		}

		ctx = auth.WithClaims(ctx, claims)
		ctx = WithTraceID(ctx, traceID)
		return handler(ctx, req)
	}
}
