package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// SwapStatus is the terminal state of a swap attempt.
type SwapStatus string

const (
	SwapExecuted  SwapStatus = "EXECUTED"
	SwapPending   SwapStatus = "PENDING_APPROVAL"
	SwapSimulated SwapStatus = "SIMULATED"
	SwapRejected  SwapStatus = "REJECTED"
)

// SwapRequest is what an agent or the controller submits.
type SwapRequest struct {
	Caller       common.Address
	Agent        common.Address
	Principal    common.Address
	RouteID      common.Hash // zero selects the default route
	ZeroForOne   bool
	AmountIn     uint256.Int
	MinAmountOut uint256.Int
	Sensitive    bool
}

// SwapOrder is what the execution backend receives.
type SwapOrder struct {
	Route        Route
	ZeroForOne   bool
	AmountIn     uint256.Int
	MinAmountOut uint256.Int
	Agent        common.Address
	Principal    common.Address
}

// SwapResult is returned to the caller of a swap.
type SwapResult struct {
	Status    SwapStatus  `json:"status"`
	RouteID   common.Hash `json:"route_id"`
	AmountIn  uint256.Int `json:"-"`
	AmountOut uint256.Int `json:"-"`
	RequestID string      `json:"request_id,omitempty"`
	Seq       uint64      `json:"seq,omitempty"`
}
