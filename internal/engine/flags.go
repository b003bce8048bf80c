package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/agentvault/internal/domain"
)

// Operator flag names, shared with the agent flag repository.
const (
	FlagBlocked    = "blocked"
	FlagQuarantine = "quarantine"
	FlagSandbox    = "sandbox"
)

// FlagSource is the durable store of operator flags (postgres).
type FlagSource interface {
	GetFlaggedAgents(ctx context.Context, flag string) ([]string, error)
}

// flagKeys ties a flag to its Redis set, warm-up lock and signal channel.
type flagKeys struct {
	flag    string
	setKey  string
	lockKey string
	channel string
}

// agentFlags is an RAM set of agents carrying one operator flag, kept in
// sync with Redis. rdb and repo are optional: without them the set is only
// changed through Set.
type agentFlags struct {
	keys     flagKeys
	rdb      *redis.Client
	repo     FlagSource
	logger   *zap.Logger
	onChange func(ctx context.Context, agent common.Address, on bool)

	mu  sync.RWMutex
	set map[common.Address]struct{}
}

func newAgentFlags(keys flagKeys, rdb *redis.Client, repo FlagSource, logger *zap.Logger) *agentFlags {
	return &agentFlags{
		keys:   keys,
		rdb:    rdb,
		repo:   repo,
		logger: logger.With(zap.String("mod", keys.flag)),
		set:    make(map[common.Address]struct{}),
	}
}

// Init loads the flagged agents at startup and on every reconnect.
func (f *agentFlags) Init(ctx context.Context) error {
	var ids []string
	var err error

	switch {
	case f.repo != nil:
		ids, err = f.repo.GetFlaggedAgents(ctx, f.keys.flag)
		if err != nil {
			return fmt.Errorf("failed to fetch %s agents from DB: %w", f.keys.flag, err)
		}
	case f.rdb != nil:
		ids, err = f.rdb.SMembers(ctx, f.keys.setKey).Result()
		if err != nil {
			return fmt.Errorf("failed to fetch %s agents from Redis: %w", f.keys.flag, err)
		}
	default:
		return nil
	}

	agents := parseAgentIDs(f.logger, ids)
	for _, a := range agents {
		f.Set(ctx, a, true)
	}
	if f.rdb == nil || f.repo == nil {
		return nil
	}
	return seedFlagSet(ctx, f.rdb, f.logger, f.keys, agents)
}

// StartListener follows the signal channel until ctx is done.
func (f *agentFlags) StartListener(ctx context.Context) {
	if f.rdb == nil {
		return
	}
	ListenStateResilient(ctx, f.rdb, f.logger, f.keys.channel,
		func() error { return f.Init(ctx) },
		func(id string, on bool) {
			if !common.IsHexAddress(id) {
				f.logger.Error("signal for malformed agent id", zap.String("id", id))
				return
			}
			f.Set(ctx, common.HexToAddress(id), on)
		},
	)
}

// Set flags or unflags an agent.
func (f *agentFlags) Set(ctx context.Context, agent common.Address, on bool) {
	f.mu.Lock()
	_, was := f.set[agent]
	if on {
		f.set[agent] = struct{}{}
	} else {
		delete(f.set, agent)
	}
	f.mu.Unlock()

	if was != on {
		f.logger.Info("agent flag changed", zap.String("agent", agent.Hex()), zap.Bool("on", on))
	}
	if f.onChange != nil {
		f.onChange(ctx, agent, on)
	}
}

func (f *agentFlags) Has(agent common.Address) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.set[agent]
	return ok
}

// List returns flagged agents, sorted.
func (f *agentFlags) List() []common.Address {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]common.Address, 0, len(f.set))
	for a := range f.set {
		out = append(out, a)
	}
	domain.SortAddresses(out)
	return out
}
