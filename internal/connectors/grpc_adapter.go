package connectors

import (
	"context"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/xela07ax/agentvault/internal/domain"
)

// GRPCAdapter calls a remote SwapBackend.
type GRPCAdapter struct {
	conn    grpc.ClientConnInterface
	timeout time.Duration
}

// NewGRPCAdapter wraps an established connection. timeout <= 0 means 15s.
func NewGRPCAdapter(conn grpc.ClientConnInterface, timeout time.Duration) *GRPCAdapter {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &GRPCAdapter{conn: conn, timeout: timeout}
}

func (a *GRPCAdapter) ExecuteSwap(ctx context.Context, order domain.SwapOrder) (uint256.Int, error) {
	// 1. Order -> protobuf Struct
	in, err := EncodeOrder(order)
	if err != nil {
		return uint256.Int{}, fmt.Errorf("failed to encode order: %w", err)
	}

	// 2. The adapter bounds its own call even under the reliability wrapper
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	// 3. Call the backend
	out := new(structpb.Struct)
	if err := a.conn.Invoke(ctx, SwapBackendExecuteMethod, in, out); err != nil {
		if status.Code(err) == codes.ResourceExhausted {
			return uint256.Int{}, &ThrottleError{RetryAfter: time.Second, Cause: err}
		}
		return uint256.Int{}, fmt.Errorf("backend call failed: %w", err)
	}

	// 4. Status inside the response
	return DecodeResult(out)
}
