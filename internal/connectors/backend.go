package connectors

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/xela07ax/agentvault/internal/domain"
)

// Backend executes swap orders against a pool and reports the output amount.
type Backend interface {
	ExecuteSwap(ctx context.Context, order domain.SwapOrder) (uint256.Int, error)
}

// Quoter prices an order without executing it. Used for dry runs.
type Quoter interface {
	Quote(ctx context.Context, order domain.SwapOrder) (uint256.Int, error)
}
