package engine

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/agentvault/internal/infra"
)

// QuarantineManager tracks agents whose every swap must be approved by the owner.
type QuarantineManager struct {
	*agentFlags
}

func NewQuarantineManager(rdb *redis.Client, repo FlagSource, logger *zap.Logger) *QuarantineManager {
	return &QuarantineManager{newAgentFlags(flagKeys{
		flag:    FlagQuarantine,
		setKey:  infra.RedisKeyQuarantineAgents,
		lockKey: infra.RedisKeyLockBlockedQuarantine,
		channel: infra.RedisChanQuarantine,
	}, rdb, repo, logger)}
}

func (m *QuarantineManager) IsQuarantined(agent common.Address) bool {
	return m.Has(agent)
}
