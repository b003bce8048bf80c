// Package bootstrap applies a YAML manifest to a fresh vault: routes, the
// controller, agent configurations and operator flags. Everything goes
// through the owner path, so the manifest cannot do what the owner could not.
package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/xela07ax/agentvault/internal/domain"
	"github.com/xela07ax/agentvault/internal/engine"
	"github.com/xela07ax/agentvault/internal/identity"
	"github.com/xela07ax/agentvault/internal/policy"
)

// DefaultRoute is the route name agents use to reference the default route.
const DefaultRoute = "default"

type Manifest struct {
	Controller string     `yaml:"controller"`
	Routes     []RouteDef `yaml:"routes"`
	Agents     []AgentDef `yaml:"agents"`
	Balances   []Balance  `yaml:"balances"`
}

type RouteDef struct {
	Name     string `yaml:"name"`
	Asset0   string `yaml:"asset0"`
	Asset1   string `yaml:"asset1"`
	Fee      uint32 `yaml:"fee"`
	Pool     string `yaml:"pool"`
	Default  bool   `yaml:"default"`
	Disabled bool   `yaml:"disabled"`
}

type AgentDef struct {
	Address     string   `yaml:"address"`
	Enabled     bool     `yaml:"enabled"`
	Identity    string   `yaml:"identity"` // ENS name
	Routes      []string `yaml:"routes"`   // route names
	MaxPerTrade string   `yaml:"max_per_trade"`
	DailyCap    string   `yaml:"daily_cap"`
	Quarantine  bool     `yaml:"quarantine"`
	Sandbox     bool     `yaml:"sandbox"`
}

// Balance funds an address in the in-process custody token.
type Balance struct {
	Address string `yaml:"address"`
	Amount  string `yaml:"amount"`
}

func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// FlagSetter is an in-process operator flag (quarantine, sandbox).
type FlagSetter interface {
	Set(ctx context.Context, agent common.Address, on bool)
}

// Options wires the optional side effects of a manifest.
type Options struct {
	Mint       func(to common.Address, amount uint256.Int) error
	Quarantine FlagSetter
	Sandbox    FlagSetter
	Logger     *zap.Logger
}

// Result reports what was applied.
type Result struct {
	Routes map[string]common.Hash
	Agents int
}

// Apply registers the manifest on v as owner. It stops at the first error.
func Apply(ctx context.Context, v *engine.Vault, owner common.Address, m *Manifest, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("bootstrap")
	res := &Result{Routes: make(map[string]common.Hash)}

	// 1. Routes
	for i, rd := range m.Routes {
		a0, a1, pool, err := rd.addresses()
		if err != nil {
			return nil, fmt.Errorf("route %d: %w", i, err)
		}
		register := v.RegisterRoute
		if rd.Default {
			register = v.SetDefaultRoute
		}
		id, err := register(ctx, owner, a0, a1, rd.Fee, pool)
		if err != nil {
			return nil, fmt.Errorf("route %d: %w", i, err)
		}
		if rd.Disabled {
			if err := v.SetRouteEnabled(ctx, owner, id, false); err != nil {
				return nil, fmt.Errorf("route %d: %w", i, err)
			}
		}
		if rd.Name != "" {
			res.Routes[rd.Name] = id
		}
		if rd.Default {
			res.Routes[DefaultRoute] = id
		}
		logger.Info("route registered", zap.String("id", id.Hex()), zap.String("name", rd.Name), zap.Bool("default", rd.Default))
	}

	// 2. Controller
	if m.Controller != "" {
		addr, err := parseAddress(m.Controller)
		if err != nil {
			return nil, fmt.Errorf("controller: %w", err)
		}
		if err := v.SetController(ctx, owner, addr); err != nil {
			return nil, fmt.Errorf("controller: %w", err)
		}
	}

	// 3. Agents
	for _, ad := range m.Agents {
		agent, in, err := ad.config(res.Routes)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", ad.Address, err)
		}
		if err := v.SetAgentConfig(ctx, owner, agent, in); err != nil {
			return nil, fmt.Errorf("agent %s: %w", ad.Address, err)
		}
		if ad.Quarantine && opts.Quarantine != nil {
			opts.Quarantine.Set(ctx, agent, true)
		}
		if ad.Sandbox && opts.Sandbox != nil {
			opts.Sandbox.Set(ctx, agent, true)
		}
		res.Agents++
	}

	// 4. Balances
	for _, b := range m.Balances {
		if opts.Mint == nil {
			logger.Warn("manifest balances ignored: custody cannot mint")
			break
		}
		addr, err := parseAddress(b.Address)
		if err != nil {
			return nil, fmt.Errorf("balance: %w", err)
		}
		amount, err := domain.ParseUnits(b.Amount)
		if err != nil {
			return nil, fmt.Errorf("balance %s: %w", b.Address, err)
		}
		if err := opts.Mint(addr, amount); err != nil {
			return nil, fmt.Errorf("balance %s: %w", b.Address, err)
		}
	}

	logger.Info("manifest applied", zap.Int("routes", len(m.Routes)), zap.Int("agents", res.Agents))
	return res, nil
}

func (rd RouteDef) addresses() (a0, a1, pool common.Address, err error) {
	if a0, err = parseAddress(rd.Asset0); err != nil {
		return
	}
	if a1, err = parseAddress(rd.Asset1); err != nil {
		return
	}
	pool, err = parseAddress(rd.Pool)
	return
}

func (ad AgentDef) config(routes map[string]common.Hash) (common.Address, policy.ConfigInput, error) {
	agent, err := parseAddress(ad.Address)
	if err != nil {
		return common.Address{}, policy.ConfigInput{}, err
	}

	in := policy.ConfigInput{Enabled: ad.Enabled}
	if ad.Identity != "" {
		in.IdentityBinding = identity.Namehash(ad.Identity)
	}
	for _, name := range ad.Routes {
		id, ok := routes[name]
		if !ok {
			return common.Address{}, policy.ConfigInput{}, fmt.Errorf("unknown route %q", name)
		}
		in.AllowedRoutes = append(in.AllowedRoutes, id)
	}
	if ad.MaxPerTrade != "" {
		if in.MaxPerTrade, err = domain.ParseUnits(ad.MaxPerTrade); err != nil {
			return common.Address{}, policy.ConfigInput{}, fmt.Errorf("max_per_trade: %w", err)
		}
	}
	if ad.DailyCap != "" {
		if in.DailyCap, err = domain.ParseUnits(ad.DailyCap); err != nil {
			return common.Address{}, policy.ConfigInput{}, fmt.Errorf("daily_cap: %w", err)
		}
		in.DailyCapEnabled = true
	}
	return agent, in, nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("malformed address %q", s)
	}
	return common.HexToAddress(s), nil
}
