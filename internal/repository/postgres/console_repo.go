package postgres

import (
	"context"
	"fmt"

	"github.com/xela07ax/agentvault/internal/domain"
)

// GetHistoryStats summarizes the last hour of stored events.
func (r *Repo) GetHistoryStats(ctx context.Context) (*domain.HistoryStats, error) {
	d := &domain.HistoryStats{}

	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE kind = 'swap_executed'),
			COUNT(*) FILTER (WHERE kind = 'swap_rejected'),
			COUNT(*) FILTER (WHERE kind = 'swap_simulated'),
			COUNT(*) FILTER (WHERE kind = 'swap_planned'),
			COALESCE(PERCENTILE_CONT(0.95) WITHIN GROUP (ORDER BY duration_ms), 0)
		FROM vault_events
		WHERE timestamp > NOW() - INTERVAL '60 minutes'`).Scan(
		&d.Events, &d.Executed, &d.Rejected, &d.Simulated, &d.Parked, &d.P95Latency,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query history stats: %w", err)
	}

	err = r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE flag = 'blocked'),
			COUNT(*) FILTER (WHERE flag = 'quarantine'),
			COUNT(*) FILTER (WHERE flag = 'sandbox')
		FROM agent_flags`).Scan(&d.BlockedAgents, &d.QuarantinedAgents, &d.SandboxAgents)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query agent flags: %w", err)
	}

	// events per second over the hour
	d.RPS = float64(d.Events) / 3600
	return d, nil
}
