package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/xela07ax/agentvault/internal/domain"
)

// ErrApprovalNotFound is returned for unknown approval ids.
var ErrApprovalNotFound = errors.New("approval not found")

const approvalColumns = `id, agent, principal, route_id, zero_for_one, amount_in, min_amount_out,
	COALESCE(reason, ''), status, reviewer_id, comment, created_at, updated_at`

// SaveApproval records a parked request or its decision. The PENDING row is
// inserted once; a later decision only moves it out of PENDING.
func (r *Repo) SaveApproval(ctx context.Context, v domain.ApprovalView) error {
	query := `
		INSERT INTO approvals (id, agent, principal, route_id, zero_for_one, amount_in, min_amount_out,
		                       reason, status, reviewer_id, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status,
		    reviewer_id = EXCLUDED.reviewer_id,
		    comment = EXCLUDED.comment,
		    updated_at = NOW()
		WHERE approvals.status = 'PENDING'`

	_, err := r.pool.Exec(ctx, query,
		v.ID, v.Agent, v.Principal, v.RouteID, v.ZeroForOne, v.AmountIn, v.MinAmountOut,
		v.Reason, string(v.Status), v.ReviewerID, v.Comment, v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save approval: %w", err)
	}
	return nil
}

// GetApprovalByID returns one approval with its decision.
func (r *Repo) GetApprovalByID(ctx context.Context, id string) (*domain.ApprovalView, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+approvalColumns+` FROM approvals WHERE id = $1`, id)

	app, err := scanApproval(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrApprovalNotFound, id)
		}
		return nil, fmt.Errorf("postgres: failed to get approval: %w", err)
	}
	return app, nil
}

// FindApprovals lists the decision history, newest first. An empty status
// matches all.
func (r *Repo) FindApprovals(ctx context.Context, status domain.ApprovalStatus) ([]*domain.ApprovalView, error) {
	query := `SELECT ` + approvalColumns + ` FROM approvals`

	var args []interface{}
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, string(status))
	}
	query += " ORDER BY created_at DESC LIMIT 100"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query approvals: %w", err)
	}
	defer rows.Close()

	// [] instead of null in JSON
	results := make([]*domain.ApprovalView, 0)
	for rows.Next() {
		app, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan approval: %w", err)
		}
		results = append(results, app)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}
	return results, nil
}

func scanApproval(row pgx.Row) (*domain.ApprovalView, error) {
	var (
		app    domain.ApprovalView
		status string
	)
	err := row.Scan(
		&app.ID, &app.Agent, &app.Principal, &app.RouteID, &app.ZeroForOne,
		&app.AmountIn, &app.MinAmountOut, &app.Reason, &status,
		&app.ReviewerID, &app.Comment, &app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	app.Status = domain.ApprovalStatus(status)
	return &app, nil
}
