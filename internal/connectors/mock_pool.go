package connectors

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"github.com/xela07ax/agentvault/internal/domain"
)

const feeDenominator = 1_000_000

// MockPool is a simulated constant-price pool. It charges the route fee tier
// (in millionths) and converts at RateNum/RateDen for zeroForOne, inverse otherwise.
type MockPool struct {
	mu       sync.Mutex
	rateNum  uint256.Int
	rateDen  uint256.Int
	latency  time.Duration
	failures []error
	calls    int
}

// NewMockPool returns a pool that trades asset0 for asset1 at num/den.
func NewMockPool(num, den uint64) *MockPool {
	if den == 0 {
		den = 1
	}
	return &MockPool{
		rateNum: *uint256.NewInt(num),
		rateDen: *uint256.NewInt(den),
	}
}

// WithLatency adds an artificial delay to each execution.
func (p *MockPool) WithLatency(d time.Duration) *MockPool {
	p.latency = d
	return p
}

// FailNext queues errors returned by the next executions, one per call.
func (p *MockPool) FailNext(errs ...error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = append(p.failures, errs...)
}

// Calls is the number of ExecuteSwap invocations, failed ones included.
func (p *MockPool) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *MockPool) ExecuteSwap(ctx context.Context, order domain.SwapOrder) (uint256.Int, error) {
	p.mu.Lock()
	p.calls++
	var injected error
	if len(p.failures) > 0 {
		injected, p.failures = p.failures[0], p.failures[1:]
	}
	p.mu.Unlock()

	if p.latency > 0 {
		select {
		case <-time.After(p.latency):
		case <-ctx.Done():
			return uint256.Int{}, ctx.Err()
		}
	}
	if injected != nil {
		return uint256.Int{}, injected
	}
	return p.Quote(ctx, order)
}

func (p *MockPool) Quote(_ context.Context, order domain.SwapOrder) (uint256.Int, error) {
	if order.Route.Fee >= feeDenominator {
		return uint256.Int{}, fmt.Errorf("fee tier %d: %w", order.Route.Fee, ErrUnsupportedOrder)
	}

	num, den := p.rateNum, p.rateDen
	if !order.ZeroForOne {
		num, den = den, num
	}
	if den.IsZero() {
		return uint256.Int{}, fmt.Errorf("zero rate: %w", ErrUnsupportedOrder)
	}

	// out = in * (1e6 - fee) / 1e6 * num / den, multiplying before dividing
	var out uint256.Int
	keep := uint256.NewInt(feeDenominator - uint64(order.Route.Fee))
	if _, overflow := out.MulOverflow(&order.AmountIn, keep); overflow {
		return uint256.Int{}, domain.ErrOverflow
	}
	if _, overflow := out.MulOverflow(&out, &num); overflow {
		return uint256.Int{}, domain.ErrOverflow
	}
	var div uint256.Int
	div.Mul(&den, uint256.NewInt(feeDenominator))
	out.Div(&out, &div)
	return out, nil
}
