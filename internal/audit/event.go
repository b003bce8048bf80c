package audit

import "time"

// Kind names what happened.
type Kind string

const (
	KindDeposit         Kind = "deposit"
	KindWithdraw        Kind = "withdraw"
	KindAllocate        Kind = "allocate"
	KindDeallocate      Kind = "deallocate"
	KindConsume         Kind = "consume"
	KindSwapPlanned     Kind = "swap_planned"
	KindSwapExecuted    Kind = "swap_executed"
	KindSwapSimulated   Kind = "swap_simulated"
	KindSwapRejected    Kind = "swap_rejected"
	KindApprovalReject  Kind = "approval_rejected"
	KindAgentConfig     Kind = "agent_config"
	KindAgentLimits     Kind = "agent_limits"
	KindAgentEnabled    Kind = "agent_enabled"
	KindControllerSet   Kind = "controller_set"
	KindRouteRegistered Kind = "route_registered"
	KindRouteDefault    Kind = "route_default"
	KindRouteEnabled    Kind = "route_enabled"
	KindBackendSet      Kind = "backend_set"
)

// Execution modes.
const (
	ModeLive    = "LIVE"
	ModeSandbox = "SANDBOX"
)

// Event is an immutable record. Seq is assigned by the Journal; events
// written straight to the audit trail (dry runs, rejections) carry Seq 0.
type Event struct {
	ID      string `json:"id"`
	Seq     uint64 `json:"seq"`
	Kind    Kind   `json:"kind"`
	TraceID string `json:"trace_id,omitempty"`

	Principal       string `json:"principal,omitempty"`
	Agent           string `json:"agent,omitempty"`
	RouteID         string `json:"route_id,omitempty"`
	ZeroForOne      bool   `json:"zero_for_one,omitempty"`
	AmountIn        string `json:"amount_in,omitempty"`  // base units
	AmountOut       string `json:"amount_out,omitempty"` // base units
	IdentityBinding string `json:"identity_binding,omitempty"`
	Approved        bool   `json:"approved,omitempty"`

	Mode       string            `json:"mode,omitempty"`
	Status     string            `json:"status,omitempty"`
	Error      string            `json:"error,omitempty"`
	Attrs      map[string]string `json:"attrs,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
	DurationMs int64             `json:"duration_ms,omitempty"`
}
