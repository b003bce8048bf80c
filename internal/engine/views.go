package engine

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xela07ax/agentvault/internal/audit"
	"github.com/xela07ax/agentvault/internal/domain"
	"github.com/xela07ax/agentvault/internal/identity"
)

func (v *Vault) Balance(principal common.Address) domain.BalanceView {
	v.mu.Lock()
	defer v.mu.Unlock()

	deposited, withdrawn := v.ledger.Totals(principal)
	return domain.BalanceView{
		Principal: principal.Hex(),
		Main:      domain.FormatUnits(v.ledger.Balance(principal)),
		Deposited: domain.FormatUnits(deposited),
		Withdrawn: domain.FormatUnits(withdrawn),
	}
}

// MainBalance returns the raw main balance in base units.
func (v *Vault) MainBalance(principal common.Address) uint256.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ledger.Balance(principal)
}

// AgentAccount returns the raw (principal, agent) sub-account.
func (v *Vault) AgentAccount(principal, agent common.Address) domain.AgentAccount {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ledger.Account(principal, agent)
}

func (v *Vault) Account(principal, agent common.Address) domain.AccountView {
	acc := v.AgentAccount(principal, agent)
	return domain.AccountView{
		Principal:  principal.Hex(),
		Agent:      agent.Hex(),
		SubBalance: domain.FormatUnits(acc.SubBalance),
		Spent:      domain.FormatUnits(acc.Spent),
	}
}

// Agent returns the agent's config view and whether it was ever configured.
func (v *Vault) Agent(agent common.Address) (domain.AgentView, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	cfg, ok := v.agents.Get(agent)
	if !ok {
		return domain.AgentView{}, false
	}
	return v.agentViewLocked(cfg), true
}

func (v *Vault) Agents() []domain.AgentView {
	v.mu.Lock()
	defer v.mu.Unlock()

	list := v.agents.Agents()
	out := make([]domain.AgentView, 0, len(list))
	for _, a := range list {
		cfg, _ := v.agents.Get(a)
		out = append(out, v.agentViewLocked(cfg))
	}
	return out
}

func (v *Vault) agentViewLocked(cfg domain.AgentConfig) domain.AgentView {
	view := domain.NewAgentView(cfg, v.ledger.SpentToday(cfg.Agent))
	if v.sandbox != nil {
		view.Sandbox = v.sandbox.IsSandbox(cfg.Agent)
	}
	if v.quarantine != nil {
		view.Quarantined = v.quarantine.IsQuarantined(cfg.Agent)
	}
	return view
}

// AllowedRoutes lists the agent's whitelisted route ids.
func (v *Vault) AllowedRoutes(agent common.Address) []common.Hash {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.agents.AllowedRoutes(agent)
}

// IsAllowed reports whether agent may trade on routeID.
func (v *Vault) IsAllowed(agent common.Address, routeID common.Hash) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.agents.IsAllowed(agent, routeID)
}

func (v *Vault) Routes() []domain.Route {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.routes.List()
}

func (v *Vault) Route(id common.Hash) (domain.Route, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.routes.Lookup(id)
}

func (v *Vault) DefaultRoute() (domain.Route, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.routes.Default()
}

// Pending returns the parked request, if any.
func (v *Vault) Pending() (domain.ApprovalView, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	req, ok := v.gate.Pending()
	if !ok {
		return domain.ApprovalView{}, false
	}
	return req.View(domain.StatusPending), true
}

// Events pages through the journal.
func (v *Vault) Events(since uint64, limit int) []audit.Event {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.journal.Events(since, limit)
}

// CheckConservation verifies the principal's holdings against net deposits.
func (v *Vault) CheckConservation(principal common.Address) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ledger.CheckConservation(principal)
}

// VerifyIdentity compares the agent's stored binding with namehash(name).
func (v *Vault) VerifyIdentity(agent common.Address, name string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	cfg, ok := v.agents.Get(agent)
	if !ok {
		return false, domain.ErrAgentDisabled
	}
	return identity.Matches(cfg.IdentityBinding, name), nil
}

func (v *Vault) Stats() domain.VaultStats {
	v.mu.Lock()
	defer v.mu.Unlock()

	main, sub, spent := v.ledger.Aggregate()
	agents := v.agents.Agents()
	enabled := 0
	for _, a := range agents {
		if cfg, _ := v.agents.Get(a); cfg.Enabled {
			enabled++
		}
	}
	_, pending := v.gate.Pending()

	return domain.VaultStats{
		Principals:     len(v.ledger.Principals()),
		Agents:         len(agents),
		EnabledAgents:  enabled,
		Routes:         v.routes.Len(),
		PendingRequest: pending,
		SwapsExecuted:  v.swapsExecuted,
		LastSeq:        v.journal.LastSeq(),
		TotalMain:      domain.FormatUnits(main),
		TotalSub:       domain.FormatUnits(sub),
		TotalSpent:     domain.FormatUnits(spent),
		BackendSet:     v.backend != nil,
	}
}
