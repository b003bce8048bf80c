package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// AgentConfig is the owner-controlled policy of a single agent.
// It is replaced as a whole by SetAgentConfig and never deleted.
type AgentConfig struct {
	Agent           common.Address
	Enabled         bool
	IdentityBinding common.Hash
	AllowedRoutes   RouteSet
	MaxPerTrade     uint256.Int
	DailyCap        uint256.Int
	DailyCapEnabled bool
}

// AgentAccount is the delegated sub-balance of one agent under one principal.
type AgentAccount struct {
	SubBalance uint256.Int
	Spent      uint256.Int
}

// AgentView is the read model returned by the console.
type AgentView struct {
	Agent           string   `json:"agent"`
	Enabled         bool     `json:"enabled"`
	IdentityBinding string   `json:"identity_binding"`
	AllowedRoutes   []string `json:"allowed_routes"`
	MaxPerTrade     string   `json:"max_per_trade"`
	DailyCap        string   `json:"daily_cap"`
	DailyCapEnabled bool     `json:"daily_cap_enabled"`
	SpentToday      string   `json:"spent_today"`
	Quarantined     bool     `json:"quarantined"`
	Sandbox         bool     `json:"sandbox"`
}

// NewAgentView renders cfg with human amounts.
func NewAgentView(cfg AgentConfig, spentToday uint256.Int) AgentView {
	ids := cfg.AllowedRoutes.IDs()
	routes := make([]string, len(ids))
	for i, id := range ids {
		routes[i] = id.Hex()
	}
	return AgentView{
		Agent:           cfg.Agent.Hex(),
		Enabled:         cfg.Enabled,
		IdentityBinding: cfg.IdentityBinding.Hex(),
		AllowedRoutes:   routes,
		MaxPerTrade:     FormatUnits(cfg.MaxPerTrade),
		DailyCap:        FormatUnits(cfg.DailyCap),
		DailyCapEnabled: cfg.DailyCapEnabled,
		SpentToday:      FormatUnits(spentToday),
	}
}

// BalanceView is the principal-level read model.
type BalanceView struct {
	Principal string `json:"principal"`
	Main      string `json:"main"`
	Deposited string `json:"deposited"`
	Withdrawn string `json:"withdrawn"`
}

// AccountView is the (principal, agent) read model.
type AccountView struct {
	Principal  string `json:"principal"`
	Agent      string `json:"agent"`
	SubBalance string `json:"sub_balance"`
	Spent      string `json:"spent"`
}
