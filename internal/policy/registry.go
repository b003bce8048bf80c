// Package policy keeps per-agent spending policy: enablement, identity
// binding, allowed routes and trade caps. Configs are replaced wholesale and
// never deleted; the kill-switch only disables them.
package policy

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/xela07ax/agentvault/internal/domain"
)

// ConfigInput is the owner's full replacement for an agent config.
type ConfigInput struct {
	Enabled         bool
	IdentityBinding common.Hash
	AllowedRoutes   []common.Hash
	MaxPerTrade     uint256.Int
	DailyCap        uint256.Int
	DailyCapEnabled bool
}

// AgentRegistry is the in-memory policy store. Not safe for concurrent use.
type AgentRegistry struct {
	configs map[common.Address]domain.AgentConfig
	logger  *zap.Logger
}

func NewAgentRegistry(logger *zap.Logger) *AgentRegistry {
	return &AgentRegistry{
		configs: make(map[common.Address]domain.AgentConfig),
		logger:  logger.Named("policy"),
	}
}

// SetAgentConfig replaces the agent's config. The allowed routes become a
// fresh set, so the caller's slice is not retained.
func (r *AgentRegistry) SetAgentConfig(agent common.Address, in ConfigInput) error {
	if agent == (common.Address{}) {
		return domain.ErrAddressZero
	}

	r.configs[agent] = domain.AgentConfig{
		Agent:           agent,
		Enabled:         in.Enabled,
		IdentityBinding: in.IdentityBinding,
		AllowedRoutes:   domain.NewRouteSet(in.AllowedRoutes...),
		MaxPerTrade:     in.MaxPerTrade,
		DailyCap:        in.DailyCap,
		DailyCapEnabled: in.DailyCapEnabled,
	}

	r.logger.Info("agent config replaced",
		zap.String("agent", agent.Hex()),
		zap.Bool("enabled", in.Enabled),
		zap.Int("routes", len(in.AllowedRoutes)),
		zap.String("max_per_trade", domain.FormatUnits(in.MaxPerTrade)),
	)
	return nil
}

// SetLimits updates only the caps. An unknown agent gets a disabled config.
func (r *AgentRegistry) SetLimits(agent common.Address, maxPerTrade, dailyCap uint256.Int, dailyCapEnabled bool) error {
	if agent == (common.Address{}) {
		return domain.ErrAddressZero
	}

	cfg, ok := r.configs[agent]
	if !ok {
		cfg = domain.AgentConfig{Agent: agent}
	}
	cfg.MaxPerTrade = maxPerTrade
	cfg.DailyCap = dailyCap
	cfg.DailyCapEnabled = dailyCapEnabled
	r.configs[agent] = cfg
	return nil
}

// SetEnabled flips the kill-switch. Returns false when the agent is unknown.
func (r *AgentRegistry) SetEnabled(agent common.Address, enabled bool) bool {
	cfg, ok := r.configs[agent]
	if !ok {
		return false
	}
	if cfg.Enabled != enabled {
		r.logger.Warn("agent enablement changed",
			zap.String("agent", agent.Hex()), zap.Bool("enabled", enabled))
	}
	cfg.Enabled = enabled
	r.configs[agent] = cfg
	return true
}

// Get returns the agent's config and whether it was ever configured.
func (r *AgentRegistry) Get(agent common.Address) (domain.AgentConfig, bool) {
	cfg, ok := r.configs[agent]
	return cfg, ok
}

// Active returns the config of an enabled agent, or ErrAgentDisabled.
func (r *AgentRegistry) Active(agent common.Address) (domain.AgentConfig, error) {
	cfg, ok := r.configs[agent]
	if !ok || !cfg.Enabled {
		return domain.AgentConfig{}, domain.ErrAgentDisabled
	}
	return cfg, nil
}

func (r *AgentRegistry) IsAllowed(agent common.Address, routeID common.Hash) bool {
	cfg, ok := r.configs[agent]
	return ok && cfg.AllowedRoutes.Contains(routeID)
}

// AllowedRoutes lists the agent's routes, sorted.
func (r *AgentRegistry) AllowedRoutes(agent common.Address) []common.Hash {
	return r.configs[agent].AllowedRoutes.IDs()
}

// Agents lists every configured agent, sorted.
func (r *AgentRegistry) Agents() []common.Address {
	out := make([]common.Address, 0, len(r.configs))
	for a := range r.configs {
		out = append(out, a)
	}
	domain.SortAddresses(out)
	return out
}
