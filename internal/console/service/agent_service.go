package service

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/agentvault/internal/engine"
	"github.com/xela07ax/agentvault/internal/infra"
)

// FlagStore persists operator flags so they survive restarts.
type FlagStore interface {
	SetAgentFlag(ctx context.Context, agent, flag string, on bool) error
}

// FlagSetter is the in-process side of a flag (the engine managers).
type FlagSetter interface {
	Set(ctx context.Context, agent common.Address, on bool)
}

type flagRoute struct {
	setKey  string
	channel string
}

var flagRoutes = map[string]flagRoute{
	engine.FlagBlocked:    {infra.RedisKeyBlockedAgents, infra.RedisChanKillSwitch},
	engine.FlagQuarantine: {infra.RedisKeyQuarantineAgents, infra.RedisChanQuarantine},
	engine.FlagSandbox:    {infra.RedisKeySandboxAgents, infra.RedisChanSandbox},
}

// AgentService switches operator flags: it persists them, updates the warm
// Redis set and broadcasts the signal every gateway listens to. Without
// Redis the local managers are updated directly.
type AgentService struct {
	store  FlagStore
	rdb    *redis.Client
	local  map[string]FlagSetter
	logger *zap.Logger
}

func NewAgentService(rdb *redis.Client, store FlagStore, local map[string]FlagSetter, logger *zap.Logger) *AgentService {
	return &AgentService{
		store:  store,
		rdb:    rdb,
		local:  local,
		logger: logger.Named("agent-service"),
	}
}

// updateAgentFlag is the single path for every operator switch.
func (s *AgentService) updateAgentFlag(ctx context.Context, agent common.Address, flag string, on bool) error {
	route, ok := flagRoutes[flag]
	if !ok {
		return fmt.Errorf("unknown agent flag %q", flag)
	}
	id := agent.Hex()

	// 1. Persistence layer
	if s.store != nil {
		if err := s.store.SetAgentFlag(ctx, id, flag, on); err != nil {
			s.logger.Error("failed to persist agent flag",
				zap.String("agent", id), zap.String("flag", flag), zap.Error(err))
			return fmt.Errorf("%s database error: %w", flag, err)
		}
	}

	// 2. No Redis: apply in-process
	if s.rdb == nil {
		if setter, ok := s.local[flag]; ok {
			setter.Set(ctx, agent, on)
		}
		s.logger.Info("agent flag applied locally", zap.String("agent", id), zap.String("flag", flag), zap.Bool("on", on))
		return nil
	}

	// 3. Warm set for gateways that start later
	var err error
	if on {
		err = s.rdb.SAdd(ctx, route.setKey, id).Err()
	} else {
		err = s.rdb.SRem(ctx, route.setKey, id).Err()
	}
	if err != nil {
		s.logger.Warn("warm set update failed", zap.String("key", route.setKey), zap.Error(err))
	}

	// 4. Real-time signal
	signal := "off"
	if on {
		signal = "on"
	}
	payload := fmt.Sprintf("%s:%s", id, signal)
	if err := s.rdb.Publish(ctx, route.channel, payload).Err(); err != nil {
		s.logger.Error("runtime signal delivery failed",
			zap.String("channel", route.channel), zap.Error(err))
		return fmt.Errorf("%s signal failure: %w", flag, err)
	}

	s.logger.Info("agent flag broadcast",
		zap.String("agent", id), zap.String("flag", flag), zap.Bool("on", on))
	return nil
}

func (s *AgentService) BlockAgent(ctx context.Context, agent common.Address) error {
	return s.updateAgentFlag(ctx, agent, engine.FlagBlocked, true)
}

func (s *AgentService) UnblockAgent(ctx context.Context, agent common.Address) error {
	return s.updateAgentFlag(ctx, agent, engine.FlagBlocked, false)
}

func (s *AgentService) SetQuarantine(ctx context.Context, agent common.Address, on bool) error {
	return s.updateAgentFlag(ctx, agent, engine.FlagQuarantine, on)
}

func (s *AgentService) SetSandboxMode(ctx context.Context, agent common.Address, on bool) error {
	return s.updateAgentFlag(ctx, agent, engine.FlagSandbox, on)
}
