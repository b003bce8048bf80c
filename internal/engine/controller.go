package engine

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xela07ax/agentvault/internal/audit"
	"github.com/xela07ax/agentvault/internal/domain"
)

func (v *Vault) isController(caller common.Address) bool {
	return v.controller != (common.Address{}) && caller == v.controller
}

// ConsumeAgentBalance spends an agent's allowance outside of a swap, for
// settlement that happens elsewhere. Controller only. The agent's enabled
// flag is not checked here, only its limits.
func (v *Vault) ConsumeAgentBalance(ctx context.Context, caller, principal, agent common.Address, amount uint256.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.isController(caller) {
		return v.fail(domain.ErrNotController)
	}

	cfg, _ := v.agents.Get(agent)
	if err := v.ledger.ConsumeAgentBalance(principal, agent, amount, cfg); err != nil {
		return v.fail(err)
	}
	v.record(ctx, audit.Event{
		Kind:      audit.KindConsume,
		Principal: principal.Hex(),
		Agent:     agent.Hex(),
		AmountIn:  amount.Dec(),
		Attrs:     map[string]string{"caller": caller.Hex()},
	})
	return nil
}

// Controller returns the current controller, zero when unset.
func (v *Vault) Controller() common.Address {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.controller
}

func (v *Vault) Owner() common.Address {
	return v.owner
}
