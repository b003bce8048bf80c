// Package approval holds the single system-wide slot for a swap waiting on
// the owner's decision.
package approval

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/xela07ax/agentvault/internal/domain"
)

// Gate is the pending-request slot. Not safe for concurrent use.
type Gate struct {
	slot domain.PendingRequest
	now  func() time.Time
}

func NewGate() *Gate {
	return &Gate{now: time.Now}
}

// Park stores req in the empty slot and returns the stored request.
func (g *Gate) Park(req domain.PendingRequest) (domain.PendingRequest, error) {
	if g.slot.Occupied() {
		return domain.PendingRequest{}, domain.ErrRequestAlreadyPending
	}
	if req.Agent == (common.Address{}) {
		return domain.PendingRequest{}, domain.ErrAddressZero
	}

	req.ID = uuid.NewString()
	req.Approved = false
	req.Executed = false
	req.CreatedAt = g.now().UTC()
	g.slot = req
	return req, nil
}

// Pending returns the parked request, if any.
func (g *Gate) Pending() (domain.PendingRequest, bool) {
	if !g.slot.Occupied() {
		return domain.PendingRequest{}, false
	}
	return g.slot, true
}

// Claim returns the request the owner is about to approve. The slot stays
// occupied until Complete, so a failed execution can be retried or rejected.
func (g *Gate) Claim() (domain.PendingRequest, error) {
	if err := g.slot.CanTransitionTo(domain.StatusApproved); err != nil {
		return domain.PendingRequest{}, err
	}
	return g.slot, nil
}

// Complete marks the claimed request executed and frees the slot.
func (g *Gate) Complete() (domain.PendingRequest, error) {
	if err := g.slot.CanTransitionTo(domain.StatusApproved); err != nil {
		return domain.PendingRequest{}, err
	}
	done := g.slot
	done.Approved = true
	done.Executed = true
	g.slot = domain.PendingRequest{}
	return done, nil
}

// Reject frees the slot without executing.
func (g *Gate) Reject() (domain.PendingRequest, error) {
	if err := g.slot.CanTransitionTo(domain.StatusRejected); err != nil {
		return domain.PendingRequest{}, err
	}
	rejected := g.slot
	g.slot = domain.PendingRequest{}
	return rejected, nil
}
