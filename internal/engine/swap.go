package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/xela07ax/agentvault/internal/audit"
	"github.com/xela07ax/agentvault/internal/connectors"
	"github.com/xela07ax/agentvault/internal/domain"
)

// settlement is one debit-then-call unit.
type settlement struct {
	cfg          domain.AgentConfig
	route        domain.Route
	principal    common.Address
	agent        common.Address
	zeroForOne   bool
	amountIn     uint256.Int
	minAmountOut uint256.Int
	approved     bool
}

// Swap validates req and then executes it, parks it for approval or
// simulates it for sandboxed agents.
func (v *Vault) Swap(ctx context.Context, req domain.SwapRequest) (domain.SwapResult, error) {
	start := time.Now()

	v.mu.Lock()
	res, note, err := v.swapLocked(ctx, req)
	v.mu.Unlock()

	status := res.Status
	if err != nil {
		status = domain.SwapRejected
	}
	v.metrics.SwapsTotal.WithLabelValues(string(status)).Inc()
	v.metrics.SwapDuration.WithLabelValues(string(status)).Observe(time.Since(start).Seconds())

	v.notify(ctx, note)
	return res, err
}

func (v *Vault) swapLocked(ctx context.Context, req domain.SwapRequest) (domain.SwapResult, *domain.ApprovalView, error) {
	// 1. Validation, no state change on failure
	cfg, route, err := v.validate(req)
	if err != nil {
		v.auditRejected(ctx, req, err)
		return domain.SwapResult{Status: domain.SwapRejected}, nil, v.fail(err)
	}

	// 2. Sandbox: dry run only
	if v.sandbox != nil && v.sandbox.IsSandbox(req.Agent) {
		res, err := v.simulate(ctx, route, req)
		if err != nil {
			v.auditRejected(ctx, req, err)
			return domain.SwapResult{Status: domain.SwapRejected}, nil, v.fail(err)
		}
		return res, nil, nil
	}

	// 3. Flagged: park for the owner
	if flagged, reason := v.analyzer.IsRequired(req); flagged {
		return v.park(ctx, cfg, route, req, reason)
	}

	// 4. Immediate execution
	res, err := v.settle(ctx, settlement{
		cfg:          cfg,
		route:        route,
		principal:    req.Principal,
		agent:        req.Agent,
		zeroForOne:   req.ZeroForOne,
		amountIn:     req.AmountIn,
		minAmountOut: req.MinAmountOut,
	})
	if err != nil {
		v.auditRejected(ctx, req, err)
		return domain.SwapResult{Status: domain.SwapRejected, RouteID: route.ID}, nil, v.fail(err)
	}
	return res, nil, nil
}

// validate runs the rejection checks in their fixed order.
func (v *Vault) validate(req domain.SwapRequest) (domain.AgentConfig, domain.Route, error) {
	if req.Caller != req.Agent && !v.isController(req.Caller) {
		return domain.AgentConfig{}, domain.Route{}, domain.ErrNotController
	}

	cfg, err := v.agents.Active(req.Agent)
	if err != nil {
		return domain.AgentConfig{}, domain.Route{}, err
	}

	route, err := v.routes.Resolve(req.RouteID)
	if err != nil {
		return domain.AgentConfig{}, domain.Route{}, err
	}
	if !route.Enabled || !cfg.AllowedRoutes.Contains(route.ID) {
		return domain.AgentConfig{}, domain.Route{}, domain.ErrRouteNotAllowed
	}

	if req.AmountIn.IsZero() {
		return domain.AgentConfig{}, domain.Route{}, domain.ErrAmountZero
	}
	if req.Principal == (common.Address{}) {
		return domain.AgentConfig{}, domain.Route{}, domain.ErrAddressZero
	}
	if req.AmountIn.Gt(&cfg.MaxPerTrade) {
		return domain.AgentConfig{}, domain.Route{}, domain.ErrTradeTooBig
	}
	if v.backend == nil {
		return domain.AgentConfig{}, domain.Route{}, domain.ErrExecutionBackendNotSet
	}
	return cfg, route, nil
}

// settle consumes the allowance and calls the backend as one unit: the debit
// is staged and only committed once the backend returned enough output.
func (v *Vault) settle(ctx context.Context, s settlement) (domain.SwapResult, error) {
	tx := v.ledger.Begin()
	defer tx.Discard()

	if err := tx.Consume(s.principal, s.agent, s.amountIn, s.cfg); err != nil {
		return domain.SwapResult{}, err
	}

	order := domain.SwapOrder{
		Route:        s.route,
		ZeroForOne:   s.zeroForOne,
		AmountIn:     s.amountIn,
		MinAmountOut: s.minAmountOut,
		Agent:        s.agent,
		Principal:    s.principal,
	}
	out, err := v.backend.ExecuteSwap(ctx, order)
	if err != nil {
		v.logger.Warn("backend execution failed, debit discarded",
			zap.String("agent", s.agent.Hex()), zap.Error(err))
		return domain.SwapResult{}, fmt.Errorf("%w: %w", domain.ErrExecutionFailed, err)
	}
	if out.Lt(&s.minAmountOut) {
		return domain.SwapResult{}, fmt.Errorf("%w: amount out %s below minimum %s",
			domain.ErrExecutionFailed, out.Dec(), s.minAmountOut.Dec())
	}

	if err := tx.Commit(); err != nil {
		return domain.SwapResult{}, err
	}
	v.swapsExecuted++

	ev := v.record(ctx, audit.Event{
		Kind:            audit.KindSwapExecuted,
		Principal:       s.principal.Hex(),
		Agent:           s.agent.Hex(),
		RouteID:         s.route.ID.Hex(),
		ZeroForOne:      s.zeroForOne,
		AmountIn:        s.amountIn.Dec(),
		AmountOut:       out.Dec(),
		IdentityBinding: s.cfg.IdentityBinding.Hex(),
		Approved:        s.approved,
		Mode:            audit.ModeLive,
		Status:          string(domain.SwapExecuted),
	})

	return domain.SwapResult{
		Status:    domain.SwapExecuted,
		RouteID:   s.route.ID,
		AmountIn:  s.amountIn,
		AmountOut: out,
		Seq:       ev.Seq,
	}, nil
}

func (v *Vault) park(ctx context.Context, cfg domain.AgentConfig, route domain.Route, req domain.SwapRequest, reason string) (domain.SwapResult, *domain.ApprovalView, error) {
	parked, err := v.gate.Park(domain.PendingRequest{
		Agent:        req.Agent,
		Principal:    req.Principal,
		RouteID:      route.ID,
		ZeroForOne:   req.ZeroForOne,
		AmountIn:     req.AmountIn,
		MinAmountOut: req.MinAmountOut,
		Reason:       reason,
	})
	if err != nil {
		v.auditRejected(ctx, req, err)
		return domain.SwapResult{Status: domain.SwapRejected, RouteID: route.ID}, nil, v.fail(err)
	}
	v.metrics.PendingApprovals.Set(1)

	ev := v.record(ctx, audit.Event{
		Kind:            audit.KindSwapPlanned,
		Principal:       req.Principal.Hex(),
		Agent:           req.Agent.Hex(),
		RouteID:         route.ID.Hex(),
		ZeroForOne:      req.ZeroForOne,
		AmountIn:        req.AmountIn.Dec(),
		IdentityBinding: cfg.IdentityBinding.Hex(),
		Status:          string(domain.StatusPending),
		Attrs:           map[string]string{"request_id": parked.ID, "reason": reason},
	})
	v.logger.Info("swap parked for approval",
		zap.String("request_id", parked.ID),
		zap.String("agent", req.Agent.Hex()),
		zap.String("reason", reason))

	view := parked.View(domain.StatusPending)
	return domain.SwapResult{
		Status:    domain.SwapPending,
		RouteID:   route.ID,
		AmountIn:  req.AmountIn,
		RequestID: parked.ID,
		Seq:       ev.Seq,
	}, &view, nil
}

// simulate checks the sub-balance and prices the order without touching the
// ledger or the journal. Only the audit trail sees it.
func (v *Vault) simulate(ctx context.Context, route domain.Route, req domain.SwapRequest) (domain.SwapResult, error) {
	acc := v.ledger.Account(req.Principal, req.Agent)
	if acc.SubBalance.Lt(&req.AmountIn) {
		return domain.SwapResult{}, domain.ErrInsufficientBalance
	}

	var out uint256.Int
	if q, ok := v.backend.(connectors.Quoter); ok {
		order := domain.SwapOrder{
			Route: route, ZeroForOne: req.ZeroForOne, AmountIn: req.AmountIn,
			MinAmountOut: req.MinAmountOut, Agent: req.Agent, Principal: req.Principal,
		}
		quoted, err := q.Quote(ctx, order)
		if err != nil {
			return domain.SwapResult{}, fmt.Errorf("%w: quote: %v", domain.ErrExecutionFailed, err)
		}
		out = quoted
	}

	if v.auditor != nil {
		v.auditor.Log(audit.Event{
			Kind:       audit.KindSwapSimulated,
			TraceID:    extractTraceID(ctx),
			Principal:  req.Principal.Hex(),
			Agent:      req.Agent.Hex(),
			RouteID:    route.ID.Hex(),
			ZeroForOne: req.ZeroForOne,
			AmountIn:   req.AmountIn.Dec(),
			AmountOut:  out.Dec(),
			Mode:       audit.ModeSandbox,
			Status:     "INTERCEPTED",
		})
	}

	return domain.SwapResult{
		Status:    domain.SwapSimulated,
		RouteID:   route.ID,
		AmountIn:  req.AmountIn,
		AmountOut: out,
	}, nil
}

func (v *Vault) auditRejected(ctx context.Context, req domain.SwapRequest, err error) {
	if v.auditor == nil {
		return
	}
	v.auditor.Log(audit.Event{
		Kind:      audit.KindSwapRejected,
		TraceID:   extractTraceID(ctx),
		Principal: req.Principal.Hex(),
		Agent:     req.Agent.Hex(),
		RouteID:   req.RouteID.Hex(),
		AmountIn:  req.AmountIn.Dec(),
		Status:    domain.CodeOf(err),
		Error:     err.Error(),
		Attrs:     map[string]string{"caller": req.Caller.Hex()},
	})
}

// ApproveAndExecute runs the parked request. Owner only. On success the
// agent is disabled and the slot freed; on failure the request stays pending.
func (v *Vault) ApproveAndExecute(ctx context.Context, caller common.Address) (domain.SwapResult, error) {
	start := time.Now()

	v.mu.Lock()
	res, note, err := v.approveLocked(ctx, caller)
	v.mu.Unlock()

	if err == nil {
		v.metrics.SwapsTotal.WithLabelValues(string(res.Status)).Inc()
		v.metrics.SwapDuration.WithLabelValues(string(res.Status)).Observe(time.Since(start).Seconds())
	}
	v.notify(ctx, note)
	return res, err
}

func (v *Vault) approveLocked(ctx context.Context, caller common.Address) (domain.SwapResult, *domain.ApprovalView, error) {
	if err := v.requireOwner(caller); err != nil {
		return domain.SwapResult{}, nil, v.fail(err)
	}
	req, err := v.gate.Claim()
	if err != nil {
		return domain.SwapResult{}, nil, v.fail(err)
	}

	cfg, ok := v.agents.Get(req.Agent)
	if !ok {
		return domain.SwapResult{}, nil, v.fail(domain.ErrAgentDisabled)
	}
	route, err := v.routes.Lookup(req.RouteID)
	if err != nil {
		return domain.SwapResult{}, nil, v.fail(err)
	}
	// the owner may have pulled the route while the request was parked
	if !route.Enabled || !cfg.AllowedRoutes.Contains(route.ID) {
		return domain.SwapResult{}, nil, v.fail(domain.ErrRouteNotAllowed)
	}
	if v.backend == nil {
		return domain.SwapResult{}, nil, v.fail(domain.ErrExecutionBackendNotSet)
	}

	res, err := v.settle(ctx, settlement{
		cfg:          cfg,
		route:        route,
		principal:    req.Principal,
		agent:        req.Agent,
		zeroForOne:   req.ZeroForOne,
		amountIn:     req.AmountIn,
		minAmountOut: req.MinAmountOut,
		approved:     true,
	})
	if err != nil {
		v.logger.Warn("approved execution failed, request stays pending",
			zap.String("request_id", req.ID), zap.Error(err))
		return domain.SwapResult{}, nil, v.fail(err)
	}

	done, err := v.gate.Complete()
	if err != nil {
		return domain.SwapResult{}, nil, v.fail(err)
	}
	v.metrics.PendingApprovals.Set(0)

	// approved execution consumes the agent's trust: kill-switch it
	if err := v.setEnabledLocked(ctx, done.Agent, false, "approval"); err != nil {
		v.logger.Error("kill-switch after approval failed",
			zap.String("agent", done.Agent.Hex()), zap.String("request_id", done.ID), zap.Error(err))
	}
	res.RequestID = done.ID

	view := done.View(domain.StatusApproved)
	reviewer := caller.Hex()
	view.ReviewerID = &reviewer
	return res, &view, nil
}

// RejectPending clears the slot without executing. Owner only.
func (v *Vault) RejectPending(ctx context.Context, caller common.Address) (domain.ApprovalView, error) {
	v.mu.Lock()
	view, err := v.rejectLocked(ctx, caller)
	v.mu.Unlock()

	if err != nil {
		return domain.ApprovalView{}, err
	}
	v.notify(ctx, &view)
	return view, nil
}

func (v *Vault) rejectLocked(ctx context.Context, caller common.Address) (domain.ApprovalView, error) {
	if err := v.requireOwner(caller); err != nil {
		return domain.ApprovalView{}, v.fail(err)
	}
	rejected, err := v.gate.Reject()
	if err != nil {
		return domain.ApprovalView{}, v.fail(err)
	}
	v.metrics.PendingApprovals.Set(0)

	v.record(ctx, audit.Event{
		Kind:      audit.KindApprovalReject,
		Principal: rejected.Principal.Hex(),
		Agent:     rejected.Agent.Hex(),
		RouteID:   rejected.RouteID.Hex(),
		AmountIn:  rejected.AmountIn.Dec(),
		Status:    string(domain.StatusRejected),
		Attrs:     map[string]string{"request_id": rejected.ID},
	})
	view := rejected.View(domain.StatusRejected)
	reviewer := caller.Hex()
	view.ReviewerID = &reviewer
	return view, nil
}
