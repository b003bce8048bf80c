package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/xela07ax/agentvault/internal/audit"
)

var eventColumns = []string{
	"id", "seq", "kind", "trace_id", "principal", "agent", "route_id", "zero_for_one",
	"amount_in", "amount_out", "identity_binding", "approved", "mode", "status", "error",
	"attrs", "duration_ms", "timestamp",
}

// WriteBatch bulk-inserts an audit batch with COPY.
func (r *Repo) WriteBatch(ctx context.Context, events []audit.Event) error {
	if len(events) == 0 {
		return nil
	}

	_, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"vault_events"},
		eventColumns,
		pgx.CopyFromSlice(len(events), func(i int) ([]any, error) {
			e := events[i]
			return []any{
				e.ID, int64(e.Seq), string(e.Kind), e.TraceID, e.Principal, e.Agent, e.RouteID, e.ZeroForOne,
				e.AmountIn, e.AmountOut, e.IdentityBinding, e.Approved, e.Mode, e.Status, e.Error,
				e.Attrs, e.DurationMs, e.Timestamp,
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("postgres: copy %d events: %w", len(events), err)
	}
	return nil
}

// EventFilter narrows ListEvents. Zero fields match everything.
type EventFilter struct {
	Agent string
	Kind  audit.Kind
	Since time.Time
	Limit int
}

// ListEvents returns stored history, newest first.
func (r *Repo) ListEvents(ctx context.Context, f EventFilter) ([]audit.Event, error) {
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 100
	}

	query := `
		SELECT id, seq, kind, COALESCE(trace_id, ''), COALESCE(principal, ''), COALESCE(agent, ''),
		       COALESCE(route_id, ''), zero_for_one, COALESCE(amount_in, ''), COALESCE(amount_out, ''),
		       COALESCE(identity_binding, ''), approved, COALESCE(mode, ''), COALESCE(status, ''),
		       COALESCE(error, ''), attrs, COALESCE(duration_ms, 0), timestamp
		FROM vault_events
		WHERE ($1 = '' OR agent = $1)
		  AND ($2 = '' OR kind = $2)
		  AND timestamp >= $3
		ORDER BY timestamp DESC, seq DESC
		LIMIT $4`

	rows, err := r.pool.Query(ctx, query, f.Agent, string(f.Kind), f.Since, f.Limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query events: %w", err)
	}
	defer rows.Close()

	results := make([]audit.Event, 0)
	for rows.Next() {
		var (
			e    audit.Event
			seq  int64
			kind string
		)
		err := rows.Scan(
			&e.ID, &seq, &kind, &e.TraceID, &e.Principal, &e.Agent,
			&e.RouteID, &e.ZeroForOne, &e.AmountIn, &e.AmountOut,
			&e.IdentityBinding, &e.Approved, &e.Mode, &e.Status,
			&e.Error, &e.Attrs, &e.DurationMs, &e.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan event: %w", err)
		}
		e.Seq = uint64(seq)
		e.Kind = audit.Kind(kind)
		results = append(results, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}
	return results, nil
}
