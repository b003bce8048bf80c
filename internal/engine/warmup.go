package engine

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const warmupLockTTL = 30 * time.Second

// parseAgentIDs turns stored ids into addresses, dropping malformed and
// duplicate entries.
func parseAgentIDs(logger *zap.Logger, ids []string) []common.Address {
	seen := make(map[common.Address]struct{}, len(ids))
	out := make([]common.Address, 0, len(ids))
	for _, id := range ids {
		if !common.IsHexAddress(id) {
			logger.Warn("skipping malformed agent id", zap.String("id", id))
			continue
		}
		a := common.HexToAddress(id)
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}

// seedFlagSet copies agents loaded from postgres into the flag's Redis set
// when that set is empty, so gateways started later warm up from Redis.
// Only the instance holding the warm-up lock writes.
func seedFlagSet(ctx context.Context, rdb *redis.Client, logger *zap.Logger, keys flagKeys, agents []common.Address) error {
	if len(agents) == 0 {
		return nil
	}

	ok, err := rdb.SetNX(ctx, keys.lockKey, "processing", warmupLockTTL).Result()
	if err != nil || !ok {
		return nil // network error or another instance is seeding
	}

	count, err := rdb.SCard(ctx, keys.setKey).Result()
	if err != nil {
		count = 0
		logger.Warn("could not check Redis set size, seeding anyway",
			zap.String("key", keys.setKey), zap.Error(err))
	}
	if count > 0 {
		return nil
	}

	members := make([]interface{}, len(agents))
	for i, a := range agents {
		members[i] = a.Hex()
	}
	logger.Info("seeding flag set from postgres",
		zap.String("flag", keys.flag), zap.Int("agents", len(agents)))
	return rdb.SAdd(ctx, keys.setKey, members...).Err()
}
