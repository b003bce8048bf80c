package engine

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/xela07ax/agentvault/internal/audit"
	"github.com/xela07ax/agentvault/internal/domain"
	"github.com/xela07ax/agentvault/internal/policy"
)

// SetAgentConfig replaces an agent's policy wholesale. Owner only.
func (v *Vault) SetAgentConfig(ctx context.Context, caller, agent common.Address, in policy.ConfigInput) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireOwner(caller); err != nil {
		return v.fail(err)
	}
	if err := v.agents.SetAgentConfig(agent, in); err != nil {
		return v.fail(err)
	}
	v.record(ctx, audit.Event{
		Kind:            audit.KindAgentConfig,
		Agent:           agent.Hex(),
		IdentityBinding: in.IdentityBinding.Hex(),
		Attrs: map[string]string{
			"enabled":           strconv.FormatBool(in.Enabled),
			"allowed_routes":    strconv.Itoa(len(in.AllowedRoutes)),
			"max_per_trade":     in.MaxPerTrade.Dec(),
			"daily_cap":         in.DailyCap.Dec(),
			"daily_cap_enabled": strconv.FormatBool(in.DailyCapEnabled),
		},
	})
	return nil
}

// SetLimits updates only the caps of an agent. Owner only.
func (v *Vault) SetLimits(ctx context.Context, caller, agent common.Address, maxPerTrade, dailyCap uint256.Int, dailyCapEnabled bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireOwner(caller); err != nil {
		return v.fail(err)
	}
	if err := v.agents.SetLimits(agent, maxPerTrade, dailyCap, dailyCapEnabled); err != nil {
		return v.fail(err)
	}
	v.record(ctx, audit.Event{
		Kind:  audit.KindAgentLimits,
		Agent: agent.Hex(),
		Attrs: map[string]string{
			"max_per_trade":     maxPerTrade.Dec(),
			"daily_cap":         dailyCap.Dec(),
			"daily_cap_enabled": strconv.FormatBool(dailyCapEnabled),
		},
	})
	return nil
}

// SetAgentEnabled is the owner's kill-switch. Owner only.
func (v *Vault) SetAgentEnabled(ctx context.Context, caller, agent common.Address, enabled bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireOwner(caller); err != nil {
		return v.fail(err)
	}
	return v.setEnabledLocked(ctx, agent, enabled, "owner")
}

// ApplyKillSwitch handles an operator signal. It bypasses the owner check:
// the signal channel is trusted infrastructure.
func (v *Vault) ApplyKillSwitch(ctx context.Context, agent common.Address, blocked bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.setEnabledLocked(ctx, agent, !blocked, "signal")
}

func (v *Vault) setEnabledLocked(ctx context.Context, agent common.Address, enabled bool, source string) error {
	if !v.agents.SetEnabled(agent, enabled) {
		return v.fail(fmt.Errorf("agent %s is not configured: %w", agent.Hex(), domain.ErrAgentDisabled))
	}
	v.record(ctx, audit.Event{
		Kind:  audit.KindAgentEnabled,
		Agent: agent.Hex(),
		Attrs: map[string]string{"enabled": strconv.FormatBool(enabled), "source": source},
	})
	return nil
}

// SetController appoints the address allowed to consume allowances and to
// drive swaps for agents. Owner only.
func (v *Vault) SetController(ctx context.Context, caller, controller common.Address) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireOwner(caller); err != nil {
		return v.fail(err)
	}
	if controller == (common.Address{}) {
		return v.fail(domain.ErrAddressZero)
	}
	if controller == v.owner {
		return v.fail(domain.ErrControllerIsOwner)
	}
	v.controller = controller
	v.record(ctx, audit.Event{Kind: audit.KindControllerSet, Attrs: map[string]string{"controller": controller.Hex()}})
	v.logger.Info("controller set", zap.String("controller", controller.Hex()))
	return nil
}

// RegisterRoute whitelists a route. Owner only.
func (v *Vault) RegisterRoute(ctx context.Context, caller, assetA, assetB common.Address, fee uint32, pool common.Address) (common.Hash, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireOwner(caller); err != nil {
		return common.Hash{}, v.fail(err)
	}
	id, err := v.routes.Register(assetA, assetB, fee, pool)
	if err != nil {
		return common.Hash{}, v.fail(err)
	}
	v.record(ctx, audit.Event{Kind: audit.KindRouteRegistered, RouteID: id.Hex(), Attrs: routeAttrs(assetA, assetB, fee, pool)})
	return id, nil
}

// SetDefaultRoute registers the route if needed and makes it the default. Owner only.
func (v *Vault) SetDefaultRoute(ctx context.Context, caller, assetA, assetB common.Address, fee uint32, pool common.Address) (common.Hash, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireOwner(caller); err != nil {
		return common.Hash{}, v.fail(err)
	}
	id, err := v.routes.SetDefault(assetA, assetB, fee, pool)
	if err != nil {
		return common.Hash{}, v.fail(err)
	}
	v.record(ctx, audit.Event{Kind: audit.KindRouteDefault, RouteID: id.Hex(), Attrs: routeAttrs(assetA, assetB, fee, pool)})
	return id, nil
}

// SetRouteEnabled toggles a route for all agents. Owner only.
func (v *Vault) SetRouteEnabled(ctx context.Context, caller common.Address, id common.Hash, enabled bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireOwner(caller); err != nil {
		return v.fail(err)
	}
	if err := v.routes.SetEnabled(id, enabled); err != nil {
		return v.fail(err)
	}
	v.record(ctx, audit.Event{
		Kind: audit.KindRouteEnabled, RouteID: id.Hex(),
		Attrs: map[string]string{"enabled": strconv.FormatBool(enabled)},
	})
	return nil
}

// SetExecutionBackend swaps the backend. nil unsets it. Owner only.
func (v *Vault) SetExecutionBackend(ctx context.Context, caller common.Address, backend ExecutionBackend, name string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireOwner(caller); err != nil {
		return v.fail(err)
	}
	v.backend = backend
	v.record(ctx, audit.Event{
		Kind:  audit.KindBackendSet,
		Attrs: map[string]string{"backend": name, "set": strconv.FormatBool(backend != nil)},
	})
	v.logger.Info("execution backend changed", zap.String("backend", name), zap.Bool("set", backend != nil))
	return nil
}

func routeAttrs(a, b common.Address, fee uint32, pool common.Address) map[string]string {
	return map[string]string{
		"asset_a": a.Hex(),
		"asset_b": b.Hex(),
		"fee":     strconv.FormatUint(uint64(fee), 10),
		"pool":    pool.Hex(),
	}
}
