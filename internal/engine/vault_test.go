package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/agentvault/internal/audit"
	"github.com/xela07ax/agentvault/internal/connectors"
	"github.com/xela07ax/agentvault/internal/custody"
	"github.com/xela07ax/agentvault/internal/domain"
	"github.com/xela07ax/agentvault/internal/identity"
	"github.com/xela07ax/agentvault/internal/policy"
	"github.com/xela07ax/agentvault/internal/risk"
)

var (
	owner      = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	controller = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	stranger   = common.HexToAddress("0x00000000000000000000000000000000000000ff")
	alice      = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	agent      = common.HexToAddress("0x000000000000000000000000000000000000a9e7")
	usdc       = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	weth       = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	poolAddr   = common.HexToAddress("0x88e6A0c2dDD26FEEb64F039a2c41296FcB3f5640")
)

type memAuditor struct {
	mu     sync.Mutex
	events []audit.Event
}

func (m *memAuditor) Log(e audit.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

func (m *memAuditor) kinds() []audit.Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]audit.Kind, len(m.events))
	for i, e := range m.events {
		out[i] = e.Kind
	}
	return out
}

type recordingObserver struct {
	mu    sync.Mutex
	views []domain.ApprovalView
}

func (o *recordingObserver) OnApproval(_ context.Context, v domain.ApprovalView) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.views = append(o.views, v)
}

type fixture struct {
	ctx        context.Context
	v          *Vault
	tok        *custody.MemoryToken
	pool       *connectors.MockPool
	route      common.Hash
	trail      *memAuditor
	quarantine *QuarantineManager
	sandbox    *SandboxManager
}

func units(s string) uint256.Int { return domain.MustUnits(s) }

func assertAmount(t *testing.T, want string, got uint256.Int) {
	t.Helper()
	assert.Equal(t, want, domain.FormatUnits(got))
}

// newFixture builds a vault with alice's 1000 deposited, 200 allocated to
// agent, agent allowed on the default route with an 80 per-trade cap.
func newFixture(t *testing.T, threshold string) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	tok := custody.NewMemoryToken("USDC")
	require.NoError(t, tok.Mint(alice, units("10000")))

	trail := &memAuditor{}
	q := NewQuarantineManager(nil, nil, logger)
	sb := NewSandboxManager(nil, nil, logger)

	v, err := NewVault(Deps{
		Owner:      owner,
		Custody:    tok,
		Journal:    audit.NewJournal(nil),
		Auditor:    trail,
		Analyzer:   risk.NewAnalyzer(q, units(threshold), logger),
		Sandbox:    sb,
		Quarantine: q,
		Logger:     logger,
	})
	require.NoError(t, err)

	route, err := v.SetDefaultRoute(ctx, owner, weth, usdc, 3000, poolAddr)
	require.NoError(t, err)
	require.NoError(t, v.SetAgentConfig(ctx, owner, agent, policy.ConfigInput{
		Enabled:         true,
		IdentityBinding: identity.Namehash("trader.agents.eth"),
		AllowedRoutes:   []common.Hash{route},
		MaxPerTrade:     units("80"),
	}))
	require.NoError(t, v.SetController(ctx, owner, controller))

	pool := connectors.NewMockPool(1, 1)
	require.NoError(t, v.SetExecutionBackend(ctx, owner, pool, "mock"))

	require.NoError(t, v.Deposit(ctx, alice, units("1000")))
	require.NoError(t, v.AllocateToAgent(ctx, alice, agent, units("200")))

	return &fixture{ctx: ctx, v: v, tok: tok, pool: pool, route: route, trail: trail, quarantine: q, sandbox: sb}
}

func (f *fixture) swap(amount string) domain.SwapRequest {
	return domain.SwapRequest{
		Caller:       agent,
		Agent:        agent,
		Principal:    alice,
		RouteID:      f.route,
		ZeroForOne:   true,
		AmountIn:     units(amount),
		MinAmountOut: units("1"),
	}
}

func TestNewVaultRequiresOwner(t *testing.T) {
	_, err := NewVault(Deps{Custody: custody.NewMemoryToken("X")})
	assert.ErrorIs(t, err, domain.ErrAddressZero)
}

func TestSwapExecutes(t *testing.T) {
	f := newFixture(t, "0")
	before := f.v.Events(0, 0)

	res, err := f.v.Swap(f.ctx, f.swap("60"))
	require.NoError(t, err)
	assert.Equal(t, domain.SwapExecuted, res.Status)
	assertAmount(t, "59.82", res.AmountOut)

	acc := f.v.AgentAccount(alice, agent)
	assertAmount(t, "140", acc.SubBalance)
	assertAmount(t, "60", acc.Spent)
	require.NoError(t, f.v.CheckConservation(alice))

	events := f.v.Events(0, 0)
	require.Len(t, events, len(before)+1)
	last := events[len(events)-1]
	assert.Equal(t, audit.KindSwapExecuted, last.Kind)
	assert.Equal(t, res.Seq, last.Seq)
	assert.Equal(t, identity.Namehash("trader.agents.eth").Hex(), last.IdentityBinding)
	assert.False(t, last.Approved)
	wantOut := units("59.82")
	assert.Equal(t, wantOut.Dec(), last.AmountOut)
}

func TestSwapZeroRouteUsesDefault(t *testing.T) {
	f := newFixture(t, "0")
	req := f.swap("10")
	req.RouteID = common.Hash{}

	res, err := f.v.Swap(f.ctx, req)
	require.NoError(t, err)
	assert.Equal(t, f.route, res.RouteID)
}

func TestSequentialTrades(t *testing.T) {
	f := newFixture(t, "0")
	for i := 0; i < 2; i++ {
		_, err := f.v.Swap(f.ctx, f.swap("30"))
		require.NoError(t, err)
	}
	assertAmount(t, "60", f.v.AgentAccount(alice, agent).Spent)
}

func TestSwapValidationOrder(t *testing.T) {
	f := newFixture(t, "0")
	other, err := f.v.RegisterRoute(f.ctx, owner, weth, usdc, 500, poolAddr)
	require.NoError(t, err)

	cases := []struct {
		name string
		mod  func(r *domain.SwapRequest)
		want error
	}{
		{"stranger caller beats everything", func(r *domain.SwapRequest) {
			r.Caller = stranger
			r.AmountIn = uint256.Int{}
		}, domain.ErrNotController},
		{"unconfigured agent", func(r *domain.SwapRequest) {
			r.Agent, r.Caller = stranger, stranger
		}, domain.ErrAgentDisabled},
		{"unknown route", func(r *domain.SwapRequest) {
			r.RouteID = common.HexToHash("0xdead")
			r.AmountIn = uint256.Int{}
		}, domain.ErrRouteNotExists},
		{"route not allowed", func(r *domain.SwapRequest) {
			r.RouteID = other
			r.AmountIn = uint256.Int{}
		}, domain.ErrRouteNotAllowed},
		{"zero amount", func(r *domain.SwapRequest) {
			r.AmountIn = uint256.Int{}
			r.Principal = common.Address{}
		}, domain.ErrAmountZero},
		{"zero principal", func(r *domain.SwapRequest) {
			r.Principal = common.Address{}
			r.AmountIn = units("1000")
		}, domain.ErrAddressZero},
		{"trade too big", func(r *domain.SwapRequest) {
			r.AmountIn = units("90")
		}, domain.ErrTradeTooBig},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := f.swap("10")
			tc.mod(&req)
			res, err := f.v.Swap(f.ctx, req)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, domain.SwapRejected, res.Status)
		})
	}

	// nothing moved
	acc := f.v.AgentAccount(alice, agent)
	assertAmount(t, "200", acc.SubBalance)
	assertAmount(t, "0", acc.Spent)
	assert.Contains(t, f.trail.kinds(), audit.KindSwapRejected)
}

func TestSwapDisabledRouteAndMissingBackend(t *testing.T) {
	f := newFixture(t, "0")

	require.NoError(t, f.v.SetRouteEnabled(f.ctx, owner, f.route, false))
	_, err := f.v.Swap(f.ctx, f.swap("10"))
	assert.ErrorIs(t, err, domain.ErrRouteNotAllowed)
	require.NoError(t, f.v.SetRouteEnabled(f.ctx, owner, f.route, true))

	require.NoError(t, f.v.SetExecutionBackend(f.ctx, owner, nil, ""))
	_, err = f.v.Swap(f.ctx, f.swap("10"))
	assert.ErrorIs(t, err, domain.ErrExecutionBackendNotSet)
}

func TestControllerDrivesSwap(t *testing.T) {
	f := newFixture(t, "0")
	req := f.swap("10")
	req.Caller = controller

	res, err := f.v.Swap(f.ctx, req)
	require.NoError(t, err)
	assert.Equal(t, domain.SwapExecuted, res.Status)
}

func TestBackendFailureDiscardsDebit(t *testing.T) {
	f := newFixture(t, "0")
	seq := len(f.v.Events(0, 0))

	f.pool.FailNext(errors.New("pool reverted"))
	_, err := f.v.Swap(f.ctx, f.swap("50"))
	assert.ErrorIs(t, err, domain.ErrExecutionFailed)

	req := f.swap("50")
	req.MinAmountOut = units("60")
	_, err = f.v.Swap(f.ctx, req)
	assert.ErrorIs(t, err, domain.ErrExecutionFailed)

	acc := f.v.AgentAccount(alice, agent)
	assertAmount(t, "200", acc.SubBalance)
	assertAmount(t, "0", acc.Spent)
	assert.Len(t, f.v.Events(0, 0), seq)
	require.NoError(t, f.v.CheckConservation(alice))
}

func TestSwapInsufficientSubBalance(t *testing.T) {
	f := newFixture(t, "0")
	require.NoError(t, f.v.DeallocateFromAgent(f.ctx, alice, agent, units("190")))

	_, err := f.v.Swap(f.ctx, f.swap("20"))
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.Zero(t, f.pool.Calls())
}

func TestFlaggedSwapParksAndApproves(t *testing.T) {
	f := newFixture(t, "0")
	obs := &recordingObserver{}
	f.v.AddObserver(obs)

	req := f.swap("50")
	req.Sensitive = true
	res, err := f.v.Swap(f.ctx, req)
	require.NoError(t, err)
	assert.Equal(t, domain.SwapPending, res.Status)
	assert.NotEmpty(t, res.RequestID)

	// no debit while parked
	assertAmount(t, "200", f.v.AgentAccount(alice, agent).SubBalance)
	assert.Zero(t, f.pool.Calls())

	pending, ok := f.v.Pending()
	require.True(t, ok)
	assert.Equal(t, res.RequestID, pending.ID)
	assert.Equal(t, risk.ReasonSensitive, pending.Reason)

	// only one slot
	_, err = f.v.Swap(f.ctx, req)
	assert.ErrorIs(t, err, domain.ErrRequestAlreadyPending)

	// unflagged traffic still flows
	_, err = f.v.Swap(f.ctx, f.swap("10"))
	require.NoError(t, err)

	_, err = f.v.ApproveAndExecute(f.ctx, stranger)
	assert.ErrorIs(t, err, domain.ErrNotOwner)

	done, err := f.v.ApproveAndExecute(f.ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, domain.SwapExecuted, done.Status)
	assert.Equal(t, res.RequestID, done.RequestID)

	acc := f.v.AgentAccount(alice, agent)
	assertAmount(t, "140", acc.SubBalance)
	assertAmount(t, "60", acc.Spent)

	_, ok = f.v.Pending()
	assert.False(t, ok)

	// kill-switch after approved execution
	view, ok := f.v.Agent(agent)
	require.True(t, ok)
	assert.False(t, view.Enabled)
	_, err = f.v.Swap(f.ctx, f.swap("10"))
	assert.ErrorIs(t, err, domain.ErrAgentDisabled)

	var executed []audit.Event
	for _, e := range f.v.Events(0, 0) {
		if e.Kind == audit.KindSwapExecuted {
			executed = append(executed, e)
		}
	}
	require.Len(t, executed, 2)
	assert.True(t, executed[1].Approved)

	_, err = f.v.ApproveAndExecute(f.ctx, owner)
	assert.ErrorIs(t, err, domain.ErrNoPendingRequest)

	require.Len(t, obs.views, 2)
	assert.Equal(t, domain.StatusPending, obs.views[0].Status)
	assert.Equal(t, domain.StatusApproved, obs.views[1].Status)
}

func TestApproveFailureKeepsRequestPending(t *testing.T) {
	f := newFixture(t, "0")
	req := f.swap("50")
	req.Sensitive = true
	_, err := f.v.Swap(f.ctx, req)
	require.NoError(t, err)

	f.pool.FailNext(errors.New("pool reverted"))
	_, err = f.v.ApproveAndExecute(f.ctx, owner)
	assert.ErrorIs(t, err, domain.ErrExecutionFailed)

	_, ok := f.v.Pending()
	assert.True(t, ok)
	assertAmount(t, "200", f.v.AgentAccount(alice, agent).SubBalance)

	_, err = f.v.RejectPending(f.ctx, stranger)
	assert.ErrorIs(t, err, domain.ErrNotOwner)

	view, err := f.v.RejectPending(f.ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, view.Status)

	_, ok = f.v.Pending()
	assert.False(t, ok)
	agentView, _ := f.v.Agent(agent)
	assert.True(t, agentView.Enabled)

	_, err = f.v.RejectPending(f.ctx, owner)
	assert.ErrorIs(t, err, domain.ErrNoPendingRequest)
}

func TestQuarantineAndThresholdForceApproval(t *testing.T) {
	f := newFixture(t, "40")

	res, err := f.v.Swap(f.ctx, f.swap("40"))
	require.NoError(t, err)
	assert.Equal(t, domain.SwapExecuted, res.Status)

	res, err = f.v.Swap(f.ctx, f.swap("41"))
	require.NoError(t, err)
	assert.Equal(t, domain.SwapPending, res.Status)
	_, err = f.v.RejectPending(f.ctx, owner)
	require.NoError(t, err)

	f.quarantine.Set(f.ctx, agent, true)
	res, err = f.v.Swap(f.ctx, f.swap("1"))
	require.NoError(t, err)
	assert.Equal(t, domain.SwapPending, res.Status)

	pending, _ := f.v.Pending()
	assert.Equal(t, risk.ReasonQuarantined, pending.Reason)
	view, _ := f.v.Agent(agent)
	assert.True(t, view.Quarantined)
}

func TestSandboxSimulates(t *testing.T) {
	f := newFixture(t, "0")
	f.sandbox.Set(f.ctx, agent, true)
	seq := len(f.v.Events(0, 0))

	res, err := f.v.Swap(f.ctx, f.swap("50"))
	require.NoError(t, err)
	assert.Equal(t, domain.SwapSimulated, res.Status)
	assertAmount(t, "49.85", res.AmountOut)

	assertAmount(t, "200", f.v.AgentAccount(alice, agent).SubBalance)
	assert.Len(t, f.v.Events(0, 0), seq)
	assert.Zero(t, f.pool.Calls())
	assert.Contains(t, f.trail.kinds(), audit.KindSwapSimulated)

	require.NoError(t, f.v.DeallocateFromAgent(f.ctx, alice, agent, units("190")))
	_, err = f.v.Swap(f.ctx, f.swap("20"))
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
}

func TestConsumeAgentBalanceByController(t *testing.T) {
	f := newFixture(t, "0")

	err := f.v.ConsumeAgentBalance(f.ctx, agent, alice, agent, units("10"))
	assert.ErrorIs(t, err, domain.ErrNotController)

	require.NoError(t, f.v.ConsumeAgentBalance(f.ctx, controller, alice, agent, units("60")))
	acc := f.v.AgentAccount(alice, agent)
	assertAmount(t, "140", acc.SubBalance)
	assertAmount(t, "60", acc.Spent)

	err = f.v.ConsumeAgentBalance(f.ctx, controller, alice, agent, units("90"))
	assert.ErrorIs(t, err, domain.ErrTradeTooBig)

	// consumption ignores the enabled flag, only limits apply
	require.NoError(t, f.v.SetAgentEnabled(f.ctx, owner, agent, false))
	require.NoError(t, f.v.ConsumeAgentBalance(f.ctx, controller, alice, agent, units("10")))
	require.NoError(t, f.v.CheckConservation(alice))
}

func TestConsumeWithLimitsOnly(t *testing.T) {
	f := newFixture(t, "0")
	fresh := common.HexToAddress("0x0000000000000000000000000000000000000f7e")
	require.NoError(t, f.v.AllocateToAgent(f.ctx, alice, fresh, units("100")))

	assert.ErrorIs(t, f.v.ConsumeAgentBalance(f.ctx, controller, alice, fresh, units("1")), domain.ErrTradeTooBig)

	require.NoError(t, f.v.SetLimits(f.ctx, owner, fresh, units("50"), units("70"), true))
	require.NoError(t, f.v.ConsumeAgentBalance(f.ctx, controller, alice, fresh, units("50")))
	assert.ErrorIs(t, f.v.ConsumeAgentBalance(f.ctx, controller, alice, fresh, units("30")), domain.ErrDailyCapExceeded)

	view, ok := f.v.Agent(fresh)
	require.True(t, ok)
	assert.False(t, view.Enabled)
	assert.Equal(t, "50", view.SpentToday)
}

func TestReferenceScenarioThroughVault(t *testing.T) {
	f := newFixture(t, "0")
	require.NoError(t, f.v.DeallocateFromAgent(f.ctx, alice, agent, units("200")))
	require.NoError(t, f.v.Withdraw(f.ctx, alice, units("200")))
	assertAmount(t, "800", f.v.MainBalance(alice))

	require.NoError(t, f.v.AllocateToAgent(f.ctx, alice, agent, units("200")))
	assertAmount(t, "600", f.v.MainBalance(alice))

	bal := f.v.Balance(alice)
	assert.Equal(t, "1000", bal.Deposited)
	assert.Equal(t, "200", bal.Withdrawn)
	require.NoError(t, f.v.CheckConservation(alice))
}

func TestOwnerOnlyAdministration(t *testing.T) {
	f := newFixture(t, "0")
	ctx := f.ctx

	assert.ErrorIs(t, f.v.SetAgentConfig(ctx, stranger, agent, policy.ConfigInput{}), domain.ErrNotOwner)
	assert.ErrorIs(t, f.v.SetLimits(ctx, stranger, agent, uint256.Int{}, uint256.Int{}, false), domain.ErrNotOwner)
	assert.ErrorIs(t, f.v.SetAgentEnabled(ctx, stranger, agent, false), domain.ErrNotOwner)
	assert.ErrorIs(t, f.v.SetController(ctx, stranger, stranger), domain.ErrNotOwner)
	assert.ErrorIs(t, f.v.SetController(ctx, owner, common.Address{}), domain.ErrAddressZero)
	assert.ErrorIs(t, f.v.SetRouteEnabled(ctx, stranger, f.route, false), domain.ErrNotOwner)
	assert.ErrorIs(t, f.v.SetExecutionBackend(ctx, stranger, nil, ""), domain.ErrNotOwner)

	_, err := f.v.RegisterRoute(ctx, stranger, weth, usdc, 500, poolAddr)
	assert.ErrorIs(t, err, domain.ErrNotOwner)
	_, err = f.v.SetDefaultRoute(ctx, stranger, weth, usdc, 500, poolAddr)
	assert.ErrorIs(t, err, domain.ErrNotOwner)

	assert.Equal(t, controller, f.v.Controller())
}

func TestKillSwitchSignal(t *testing.T) {
	f := newFixture(t, "0")

	ks := NewKillSwitchListener(f.v, nil, nil, zap.NewNop())
	ks.Set(f.ctx, agent, true)
	assert.True(t, ks.IsBlocked(agent))

	_, err := f.v.Swap(f.ctx, f.swap("10"))
	assert.ErrorIs(t, err, domain.ErrAgentDisabled)

	ks.Set(f.ctx, agent, false)
	_, err = f.v.Swap(f.ctx, f.swap("10"))
	assert.NoError(t, err)

	// unknown agents are ignored
	ks.Set(f.ctx, stranger, true)
	assert.ErrorIs(t, f.v.ApplyKillSwitch(f.ctx, stranger, true), domain.ErrAgentDisabled)
}

func TestVerifyIdentity(t *testing.T) {
	f := newFixture(t, "0")

	ok, err := f.v.VerifyIdentity(agent, "trader.agents.eth")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.v.VerifyIdentity(agent, "impostor.eth")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.v.VerifyIdentity(stranger, "x.eth")
	assert.ErrorIs(t, err, domain.ErrAgentDisabled)
}

func TestConcurrentSwapsAreSerialized(t *testing.T) {
	f := newFixture(t, "0")

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.v.Swap(f.ctx, f.swap("10"))
		}()
	}
	wg.Wait()

	// 200 allocated: exactly 20 swaps fit
	acc := f.v.AgentAccount(alice, agent)
	assertAmount(t, "0", acc.SubBalance)
	assertAmount(t, "200", acc.Spent)
	assert.Equal(t, 20, f.pool.Calls())
	require.NoError(t, f.v.CheckConservation(alice))

	stats := f.v.Stats()
	assert.Equal(t, uint64(20), stats.SwapsExecuted)
	assert.Equal(t, "200", stats.TotalSpent)
	assert.True(t, stats.BackendSet)
}

func TestApprovalRechecksRoute(t *testing.T) {
	f := newFixture(t, "0")
	req := f.swap("50")
	req.Sensitive = true
	_, err := f.v.Swap(f.ctx, req)
	require.NoError(t, err)

	// route pulled while the request waits
	require.NoError(t, f.v.SetRouteEnabled(f.ctx, owner, f.route, false))
	_, err = f.v.ApproveAndExecute(f.ctx, owner)
	assert.ErrorIs(t, err, domain.ErrRouteNotAllowed)
	assert.Zero(t, f.pool.Calls())
	assertAmount(t, "200", f.v.AgentAccount(alice, agent).SubBalance)
	_, ok := f.v.Pending()
	require.True(t, ok)

	// de-whitelisted for the agent
	require.NoError(t, f.v.SetRouteEnabled(f.ctx, owner, f.route, true))
	require.NoError(t, f.v.SetAgentConfig(f.ctx, owner, agent, policy.ConfigInput{
		Enabled:     true,
		MaxPerTrade: units("80"),
	}))
	_, err = f.v.ApproveAndExecute(f.ctx, owner)
	assert.ErrorIs(t, err, domain.ErrRouteNotAllowed)

	require.NoError(t, f.v.SetAgentConfig(f.ctx, owner, agent, policy.ConfigInput{
		Enabled:       true,
		AllowedRoutes: []common.Hash{f.route},
		MaxPerTrade:   units("80"),
	}))
	res, err := f.v.ApproveAndExecute(f.ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, domain.SwapExecuted, res.Status)

	// the kill-switch is recorded in the journal
	var disabled []audit.Event
	for _, e := range f.v.Events(0, 0) {
		if e.Kind == audit.KindAgentEnabled && e.Attrs["source"] == "approval" {
			disabled = append(disabled, e)
		}
	}
	require.Len(t, disabled, 1)
	assert.Equal(t, "false", disabled[0].Attrs["enabled"])
}

func TestSandboxReportsQuoteFailure(t *testing.T) {
	f := newFixture(t, "0")
	f.sandbox.Set(f.ctx, agent, true)
	// zero rate: the reverse direction divides by zero and cannot be priced
	require.NoError(t, f.v.SetExecutionBackend(f.ctx, owner, connectors.NewMockPool(0, 1), "broken"))

	req := f.swap("50")
	req.ZeroForOne = false
	res, err := f.v.Swap(f.ctx, req)
	assert.ErrorIs(t, err, domain.ErrExecutionFailed)
	assert.Equal(t, domain.SwapRejected, res.Status)
	assert.Contains(t, f.trail.kinds(), audit.KindSwapRejected)
	assert.NotContains(t, f.trail.kinds(), audit.KindSwapSimulated)
	assertAmount(t, "200", f.v.AgentAccount(alice, agent).SubBalance)
}

func TestControllerMustDifferFromOwner(t *testing.T) {
	f := newFixture(t, "0")

	assert.ErrorIs(t, f.v.SetController(f.ctx, owner, owner), domain.ErrControllerIsOwner)
	assert.Equal(t, controller, f.v.Controller())
	assert.Equal(t, domain.CodeControllerIsOwner, domain.CodeOf(domain.ErrControllerIsOwner))
}
