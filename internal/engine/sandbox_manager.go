package engine

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/agentvault/internal/infra"
)

// SandboxManager tracks agents whose swaps are only simulated.
type SandboxManager struct {
	*agentFlags
}

func NewSandboxManager(rdb *redis.Client, repo FlagSource, logger *zap.Logger) *SandboxManager {
	return &SandboxManager{newAgentFlags(flagKeys{
		flag:    FlagSandbox,
		setKey:  infra.RedisKeySandboxAgents,
		lockKey: infra.RedisKeyLockBlockedSandbox,
		channel: infra.RedisChanSandbox,
	}, rdb, repo, logger)}
}

// IsSandbox is the hot-path check used by the vault.
func (sm *SandboxManager) IsSandbox(agent common.Address) bool {
	return sm.Has(agent)
}
