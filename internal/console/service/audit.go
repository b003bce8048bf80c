package service

import (
	"context"
	"fmt"

	"github.com/xela07ax/agentvault/internal/audit"
	"github.com/xela07ax/agentvault/internal/domain"
	"github.com/xela07ax/agentvault/internal/repository/postgres"
)

// AuditLogProvider reads the durable audit history.
type AuditLogProvider interface {
	ListEvents(ctx context.Context, f postgres.EventFilter) ([]audit.Event, error)
	GetHistoryStats(ctx context.Context) (*domain.HistoryStats, error)
}

type AuditService struct {
	repo AuditLogProvider
}

func NewAuditService(repo AuditLogProvider) *AuditService {
	return &AuditService{repo: repo}
}

func (s *AuditService) FetchLogs(ctx context.Context, f postgres.EventFilter) ([]audit.Event, error) {
	if s.repo == nil {
		return nil, ErrHistoryDisabled
	}
	logs, err := s.repo.ListEvents(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("audit_service: failed to fetch logs: %w", err)
	}
	return logs, nil
}

func (s *AuditService) Stats(ctx context.Context) (*domain.HistoryStats, error) {
	if s.repo == nil {
		return nil, ErrHistoryDisabled
	}
	return s.repo.GetHistoryStats(ctx)
}
