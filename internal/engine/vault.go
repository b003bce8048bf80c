package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/xela07ax/agentvault/internal/approval"
	"github.com/xela07ax/agentvault/internal/audit"
	"github.com/xela07ax/agentvault/internal/custody"
	"github.com/xela07ax/agentvault/internal/domain"
	"github.com/xela07ax/agentvault/internal/ledger"
	"github.com/xela07ax/agentvault/internal/policy"
	"github.com/xela07ax/agentvault/internal/risk"
	"github.com/xela07ax/agentvault/internal/routes"
)

// ExecutionBackend performs the actual swap and returns the output amount.
type ExecutionBackend interface {
	ExecuteSwap(ctx context.Context, order domain.SwapOrder) (uint256.Int, error)
}

// ApprovalObserver is told about every change of the approval slot.
// It runs after the vault lock is released.
type ApprovalObserver interface {
	OnApproval(ctx context.Context, view domain.ApprovalView)
}

// SandboxProvider reports agents whose swaps are only simulated.
type SandboxProvider interface {
	IsSandbox(agent common.Address) bool
}

type Deps struct {
	Owner    common.Address
	Custody  custody.Custody
	Journal  *audit.Journal
	Auditor  audit.Auditor // audit trail for records outside the journal, may be nil
	Analyzer *risk.Analyzer
	Sandbox  SandboxProvider
	// Quarantine is only read for views; the analyzer owns the decision.
	Quarantine risk.QuarantineProvider
	Metrics    *Metrics
	Logger     *zap.Logger
	Clock      func() time.Time
}

// Vault is the single sequencing point of the system. Every public method
// holds mu for its whole duration, backend calls included.
type Vault struct {
	mu sync.Mutex

	owner      common.Address
	controller common.Address

	ledger  *ledger.Ledger
	routes  *routes.Registry
	agents  *policy.AgentRegistry
	gate    *approval.Gate
	backend ExecutionBackend

	journal    *audit.Journal
	auditor    audit.Auditor
	analyzer   *risk.Analyzer
	sandbox    SandboxProvider
	quarantine risk.QuarantineProvider
	metrics    *Metrics
	logger     *zap.Logger
	observers  []ApprovalObserver

	swapsExecuted uint64
}

func NewVault(d Deps) (*Vault, error) {
	if d.Owner == (common.Address{}) {
		return nil, fmt.Errorf("vault owner: %w", domain.ErrAddressZero)
	}
	if d.Custody == nil {
		return nil, fmt.Errorf("vault custody is not configured")
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = NewMetrics(nil)
	}
	if d.Journal == nil {
		d.Journal = audit.NewJournal(d.Auditor)
	}
	if d.Analyzer == nil {
		d.Analyzer = risk.NewAnalyzer(d.Quarantine, uint256.Int{}, d.Logger)
	}

	l := ledger.New(d.Custody)
	if d.Clock != nil {
		l.WithClock(d.Clock)
	}

	return &Vault{
		owner:      d.Owner,
		ledger:     l,
		routes:     routes.NewRegistry(),
		agents:     policy.NewAgentRegistry(d.Logger),
		gate:       approval.NewGate(),
		journal:    d.Journal,
		auditor:    d.Auditor,
		analyzer:   d.Analyzer,
		sandbox:    d.Sandbox,
		quarantine: d.Quarantine,
		metrics:    d.Metrics,
		logger:     d.Logger.Named("vault"),
	}, nil
}

// AddObserver registers an approval observer. Call before serving traffic.
func (v *Vault) AddObserver(o ApprovalObserver) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.observers = append(v.observers, o)
}

func (v *Vault) notify(ctx context.Context, view *domain.ApprovalView) {
	if view == nil {
		return
	}
	v.mu.Lock()
	observers := append([]ApprovalObserver(nil), v.observers...)
	v.mu.Unlock()

	for _, o := range observers {
		o.OnApproval(ctx, *view)
	}
}

// fail counts err by code and returns it unchanged.
func (v *Vault) fail(err error) error {
	if err != nil {
		v.metrics.ErrorTotal.WithLabelValues(domain.CodeOf(err)).Inc()
	}
	return err
}

func (v *Vault) requireOwner(caller common.Address) error {
	if caller != v.owner {
		return domain.ErrNotOwner
	}
	return nil
}

func (v *Vault) record(ctx context.Context, e audit.Event) audit.Event {
	e.TraceID = extractTraceID(ctx)
	return v.journal.Append(e)
}

// Deposit pulls amount from the principal's wallet into the vault.
func (v *Vault) Deposit(ctx context.Context, principal common.Address, amount uint256.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.ledger.Deposit(principal, amount); err != nil {
		return v.fail(err)
	}
	v.record(ctx, audit.Event{Kind: audit.KindDeposit, Principal: principal.Hex(), AmountIn: amount.Dec()})
	return nil
}

// Withdraw releases amount from the principal's main balance back to the wallet.
func (v *Vault) Withdraw(ctx context.Context, principal common.Address, amount uint256.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.ledger.Withdraw(principal, amount); err != nil {
		return v.fail(err)
	}
	v.record(ctx, audit.Event{Kind: audit.KindWithdraw, Principal: principal.Hex(), AmountIn: amount.Dec()})
	return nil
}

func (v *Vault) AllocateToAgent(ctx context.Context, principal, agent common.Address, amount uint256.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.ledger.AllocateToAgent(principal, agent, amount); err != nil {
		return v.fail(err)
	}
	v.record(ctx, audit.Event{
		Kind: audit.KindAllocate, Principal: principal.Hex(), Agent: agent.Hex(), AmountIn: amount.Dec(),
	})
	return nil
}

func (v *Vault) DeallocateFromAgent(ctx context.Context, principal, agent common.Address, amount uint256.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.ledger.DeallocateFromAgent(principal, agent, amount); err != nil {
		return v.fail(err)
	}
	v.record(ctx, audit.Event{
		Kind: audit.KindDeallocate, Principal: principal.Hex(), Agent: agent.Hex(), AmountIn: amount.Dec(),
	})
	return nil
}
