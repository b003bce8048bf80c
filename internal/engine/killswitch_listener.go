package engine

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/agentvault/internal/domain"
	"github.com/xela07ax/agentvault/internal/infra"
)

// KillSwitchListener turns operator block/unblock signals into agent
// enable/disable calls on the vault.
type KillSwitchListener struct {
	*agentFlags
}

func NewKillSwitchListener(v *Vault, rdb *redis.Client, repo FlagSource, logger *zap.Logger) *KillSwitchListener {
	f := newAgentFlags(flagKeys{
		flag:    FlagBlocked,
		setKey:  infra.RedisKeyBlockedAgents,
		lockKey: infra.RedisKeyLockBlocked,
		channel: infra.RedisChanKillSwitch,
	}, rdb, repo, logger)

	f.onChange = func(ctx context.Context, agent common.Address, blocked bool) {
		err := v.ApplyKillSwitch(ctx, agent, blocked)
		if errors.Is(err, domain.ErrAgentDisabled) {
			// signal for an agent this vault never configured
			f.logger.Warn("kill-switch for unknown agent", zap.String("agent", agent.Hex()))
			return
		}
		if err != nil {
			f.logger.Error("kill-switch failed", zap.String("agent", agent.Hex()), zap.Error(err))
			return
		}
		f.logger.Warn("kill-switch applied", zap.String("agent", agent.Hex()), zap.Bool("blocked", blocked))
	}
	return &KillSwitchListener{f}
}

func (l *KillSwitchListener) IsBlocked(agent common.Address) bool {
	return l.Has(agent)
}
