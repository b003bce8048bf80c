package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/agentvault/internal/domain"
	"github.com/xela07ax/agentvault/internal/infra"
)

// ErrHistoryDisabled is returned when no approval store is configured.
var ErrHistoryDisabled = errors.New("approval history is not configured")

type ApprovalStore interface {
	SaveApproval(ctx context.Context, v domain.ApprovalView) error
	GetApprovalByID(ctx context.Context, id string) (*domain.ApprovalView, error)
	FindApprovals(ctx context.Context, status domain.ApprovalStatus) ([]*domain.ApprovalView, error)
}

// ApprovalService records every slot change and broadcasts it on Redis so
// operator dashboards see new requests without polling. It is registered
// as a vault approval observer.
type ApprovalService struct {
	store  ApprovalStore
	rdb    *redis.Client
	logger *zap.Logger
}

func NewApprovalService(store ApprovalStore, rdb *redis.Client, logger *zap.Logger) *ApprovalService {
	return &ApprovalService{store: store, rdb: rdb, logger: logger.Named("approval-service")}
}

// OnApproval persists and publishes the change. Failures are logged only:
// the vault state is already final.
func (s *ApprovalService) OnApproval(ctx context.Context, v domain.ApprovalView) {
	if s.store != nil {
		if err := s.store.SaveApproval(ctx, v); err != nil {
			s.logger.Error("failed to persist approval",
				zap.String("id", v.ID), zap.String("status", string(v.Status)), zap.Error(err))
		}
	}

	if s.rdb != nil {
		payload, err := json.Marshal(v)
		if err != nil {
			s.logger.Error("failed to encode approval", zap.Error(err))
			return
		}
		if err := s.rdb.Publish(ctx, infra.RedisChanApprovals, payload).Err(); err != nil {
			s.logger.Warn("approval notification failed", zap.String("id", v.ID), zap.Error(err))
		}
	}

	s.logger.Info("approval slot changed",
		zap.String("id", v.ID),
		zap.String("agent", v.Agent),
		zap.String("status", string(v.Status)))
}

func (s *ApprovalService) GetApproval(ctx context.Context, id string) (*domain.ApprovalView, error) {
	if s.store == nil {
		return nil, ErrHistoryDisabled
	}
	return s.store.GetApprovalByID(ctx, id)
}

// GetApprovals lists history filtered by status (case-insensitive).
func (s *ApprovalService) GetApprovals(ctx context.Context, status string) ([]*domain.ApprovalView, error) {
	if s.store == nil {
		return nil, ErrHistoryDisabled
	}
	return s.store.FindApprovals(ctx, domain.ApprovalStatus(strings.ToUpper(status)))
}
