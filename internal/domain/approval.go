package domain

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ApprovalStatus is the lifecycle of a parked swap.
type ApprovalStatus string

const (
	StatusPending  ApprovalStatus = "PENDING"
	StatusApproved ApprovalStatus = "APPROVED"
	StatusRejected ApprovalStatus = "REJECTED"
)

var ErrInvalidTransition = errors.New("invalid approval status transition")

// PendingRequest is a flagged swap waiting for the owner's decision.
type PendingRequest struct {
	ID           string
	Agent        common.Address
	Principal    common.Address
	RouteID      common.Hash
	ZeroForOne   bool
	AmountIn     uint256.Int
	MinAmountOut uint256.Int
	Reason       string
	Approved     bool
	Executed     bool
	CreatedAt    time.Time
}

// Occupied reports whether the slot holds a request.
func (p *PendingRequest) Occupied() bool {
	return p != nil && p.Agent != (common.Address{})
}

// Status derives the lifecycle state from the flags.
func (p *PendingRequest) Status() ApprovalStatus {
	if p.Approved || p.Executed {
		return StatusApproved
	}
	return StatusPending
}

// CanTransitionTo checks the approval state machine.
func (p *PendingRequest) CanTransitionTo(next ApprovalStatus) error {
	if !p.Occupied() || p.Status() != StatusPending {
		return ErrNoPendingRequest
	}
	if next == StatusPending {
		return ErrInvalidTransition
	}
	return nil
}

// ApprovalView is the console/history representation of a request.
type ApprovalView struct {
	ID           string         `json:"id"`
	Agent        string         `json:"agent"`
	Principal    string         `json:"principal"`
	RouteID      string         `json:"route_id"`
	ZeroForOne   bool           `json:"zero_for_one"`
	AmountIn     string         `json:"amount_in"`
	MinAmountOut string         `json:"min_amount_out"`
	Reason       string         `json:"reason"`
	Status       ApprovalStatus `json:"status"`
	ReviewerID   *string        `json:"reviewer_id,omitempty"`
	Comment      *string        `json:"comment,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// View renders the request with the given status.
func (p *PendingRequest) View(status ApprovalStatus) ApprovalView {
	return ApprovalView{
		ID:           p.ID,
		Agent:        p.Agent.Hex(),
		Principal:    p.Principal.Hex(),
		RouteID:      p.RouteID.Hex(),
		ZeroForOne:   p.ZeroForOne,
		AmountIn:     FormatUnits(p.AmountIn),
		MinAmountOut: FormatUnits(p.MinAmountOut),
		Reason:       p.Reason,
		Status:       status,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.CreatedAt,
	}
}
