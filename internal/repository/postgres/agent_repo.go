package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xela07ax/agentvault/internal/infra"
)

// Repo is the vault's durable store: audit history, approval decisions,
// operator flags and console users.
type Repo struct {
	pool *pgxpool.Pool
}

// New opens a pool and checks the connection.
func New(ctx context.Context, cfg infra.DatabaseConfig) (*Repo, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = cfg.MinConns
	}
	pcfg.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: open pool: %w", err)
	}
	r := &Repo{pool: pool}
	if err := r.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: unreachable: %w", err)
	}
	return r, nil
}

// Ping checks the database at startup.
func (r *Repo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repo) Close() {
	r.pool.Close()
}

// Migrate applies Schema. Statements are idempotent.
func (r *Repo) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

// GetFlaggedAgents returns the agents carrying flag (blocked, sandbox,
// quarantine). Used to warm the in-memory flag sets at startup.
func (r *Repo) GetFlaggedAgents(ctx context.Context, flag string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT agent FROM agent_flags WHERE flag = $1 ORDER BY agent`, flag)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to fetch %s agents: %w", flag, err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: scan agent id error: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}
	return ids, nil
}

// SetAgentFlag records or clears a flag for an agent.
func (r *Repo) SetAgentFlag(ctx context.Context, agent, flag string, on bool) error {
	var err error
	if on {
		_, err = r.pool.Exec(ctx, `
			INSERT INTO agent_flags (agent, flag) VALUES ($1, $2)
			ON CONFLICT (agent, flag) DO UPDATE SET updated_at = NOW()`, agent, flag)
	} else {
		_, err = r.pool.Exec(ctx, `DELETE FROM agent_flags WHERE agent = $1 AND flag = $2`, agent, flag)
	}
	if err != nil {
		return fmt.Errorf("postgres: failed to set %s flag: %w", flag, err)
	}
	return nil
}
