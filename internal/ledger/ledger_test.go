package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/agentvault/internal/custody"
	"github.com/xela07ax/agentvault/internal/domain"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	agent = common.HexToAddress("0x000000000000000000000000000000000000a9e7")
)

func units(s string) uint256.Int { return domain.MustUnits(s) }

func newLedger(t *testing.T) (*Ledger, *custody.MemoryToken) {
	t.Helper()
	tok := custody.NewMemoryToken("TKN")
	require.NoError(t, tok.Mint(alice, units("10000")))
	require.NoError(t, tok.Mint(bob, units("10000")))
	return New(tok), tok
}

func limits(maxPerTrade string) domain.AgentConfig {
	return domain.AgentConfig{Agent: agent, Enabled: true, MaxPerTrade: units(maxPerTrade)}
}

func assertAmount(t *testing.T, want string, got uint256.Int) {
	t.Helper()
	assert.Equal(t, want, domain.FormatUnits(got))
}

func TestReferenceScenario(t *testing.T) {
	l, _ := newLedger(t)

	require.NoError(t, l.Deposit(alice, units("1000")))
	require.NoError(t, l.Withdraw(alice, units("200")))
	assertAmount(t, "800", l.Balance(alice))

	require.NoError(t, l.AllocateToAgent(alice, agent, units("200")))
	assertAmount(t, "600", l.Balance(alice))
	assertAmount(t, "200", l.Account(alice, agent).SubBalance)

	cfg := limits("80")
	require.NoError(t, l.ConsumeAgentBalance(alice, agent, units("60"), cfg))
	acc := l.Account(alice, agent)
	assertAmount(t, "140", acc.SubBalance)
	assertAmount(t, "60", acc.Spent)

	err := l.ConsumeAgentBalance(alice, agent, units("90"), cfg)
	assert.ErrorIs(t, err, domain.ErrTradeTooBig)
	assertAmount(t, "140", l.Account(alice, agent).SubBalance)

	require.NoError(t, l.CheckConservation(alice))
}

func TestSequentialTradesAccumulateSpent(t *testing.T) {
	l, _ := newLedger(t)
	require.NoError(t, l.Deposit(alice, units("100")))
	require.NoError(t, l.AllocateToAgent(alice, agent, units("100")))

	cfg := limits("50")
	require.NoError(t, l.ConsumeAgentBalance(alice, agent, units("30"), cfg))
	require.NoError(t, l.ConsumeAgentBalance(alice, agent, units("30"), cfg))

	assertAmount(t, "60", l.Account(alice, agent).Spent)
	assertAmount(t, "40", l.Account(alice, agent).SubBalance)
	require.NoError(t, l.CheckConservation(alice))
}

func TestDepositValidation(t *testing.T) {
	l, _ := newLedger(t)

	assert.ErrorIs(t, l.Deposit(alice, uint256.Int{}), domain.ErrAmountZero)
	assert.ErrorIs(t, l.Deposit(common.Address{}, units("1")), domain.ErrAddressZero)
	assert.Empty(t, l.Principals())
}

func TestDepositCustodyFailureLeavesBalance(t *testing.T) {
	l, tok := newLedger(t)
	tok.FailNext(errors.New("transfer reverted"))

	err := l.Deposit(alice, units("10"))
	require.Error(t, err)
	assertAmount(t, "0", l.Balance(alice))

	// wallet does not hold enough
	err = l.Deposit(alice, units("10001"))
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assertAmount(t, "0", l.Balance(alice))
}

func TestWithdrawCustodyFailureRevertsDebit(t *testing.T) {
	l, tok := newLedger(t)
	require.NoError(t, l.Deposit(alice, units("50")))

	tok.FailNext(errors.New("transfer reverted"))
	require.Error(t, l.Withdraw(alice, units("20")))
	assertAmount(t, "50", l.Balance(alice))

	_, withdrawn := l.Totals(alice)
	assert.True(t, withdrawn.IsZero())

	assert.ErrorIs(t, l.Withdraw(alice, units("51")), domain.ErrInsufficientBalance)
	require.NoError(t, l.Withdraw(alice, units("20")))
	assertAmount(t, "9970", tok.WalletOf(alice))
}

func TestAllocateDeallocate(t *testing.T) {
	l, _ := newLedger(t)
	require.NoError(t, l.Deposit(alice, units("100")))

	assert.ErrorIs(t, l.AllocateToAgent(alice, agent, units("101")), domain.ErrInsufficientBalance)
	assert.ErrorIs(t, l.AllocateToAgent(alice, common.Address{}, units("1")), domain.ErrAddressZero)

	require.NoError(t, l.AllocateToAgent(alice, agent, units("70")))
	assert.ErrorIs(t, l.DeallocateFromAgent(alice, agent, units("71")), domain.ErrInsufficientBalance)
	require.NoError(t, l.DeallocateFromAgent(alice, agent, units("20")))

	assertAmount(t, "50", l.Balance(alice))
	assertAmount(t, "50", l.Account(alice, agent).SubBalance)
	assert.Equal(t, []common.Address{agent}, l.AgentsOf(alice))
	require.NoError(t, l.CheckConservation(alice))
}

func TestConsumeInsufficientBalance(t *testing.T) {
	l, _ := newLedger(t)
	require.NoError(t, l.Deposit(alice, units("100")))
	require.NoError(t, l.AllocateToAgent(alice, agent, units("10")))

	err := l.ConsumeAgentBalance(alice, agent, units("11"), limits("50"))
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assertAmount(t, "0", l.Account(alice, agent).Spent)
}

func TestDailyCapAggregatesAcrossPrincipals(t *testing.T) {
	l, _ := newLedger(t)
	day := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	l.WithClock(func() time.Time { return day })

	for _, p := range []common.Address{alice, bob} {
		require.NoError(t, l.Deposit(p, units("100")))
		require.NoError(t, l.AllocateToAgent(p, agent, units("100")))
	}

	cfg := limits("50")
	cfg.DailyCapEnabled = true
	cfg.DailyCap = units("60")

	require.NoError(t, l.ConsumeAgentBalance(alice, agent, units("40"), cfg))
	err := l.ConsumeAgentBalance(bob, agent, units("30"), cfg)
	assert.ErrorIs(t, err, domain.ErrDailyCapExceeded)
	require.NoError(t, l.ConsumeAgentBalance(bob, agent, units("20"), cfg))
	assertAmount(t, "60", l.SpentToday(agent))

	// next UTC day opens a fresh window
	day = day.Add(2 * time.Hour)
	assertAmount(t, "0", l.SpentToday(agent))
	require.NoError(t, l.ConsumeAgentBalance(bob, agent, units("30"), cfg))
}

func TestTxDiscardLeavesNoTrace(t *testing.T) {
	l, _ := newLedger(t)
	require.NoError(t, l.Deposit(alice, units("100")))
	require.NoError(t, l.AllocateToAgent(alice, agent, units("100")))

	tx := l.Begin()
	require.NoError(t, tx.Consume(alice, agent, units("10"), limits("50")))
	assertAmount(t, "90", tx.Account(alice, agent).SubBalance)
	assertAmount(t, "100", l.Account(alice, agent).SubBalance)
	tx.Discard()

	assertAmount(t, "100", l.Account(alice, agent).SubBalance)
	assertAmount(t, "0", l.SpentToday(agent))
	assert.ErrorIs(t, tx.Commit(), ErrTxClosed)
}

func TestAggregate(t *testing.T) {
	l, _ := newLedger(t)
	require.NoError(t, l.Deposit(alice, units("100")))
	require.NoError(t, l.Deposit(bob, units("50")))
	require.NoError(t, l.AllocateToAgent(bob, agent, units("20")))
	require.NoError(t, l.ConsumeAgentBalance(bob, agent, units("5"), limits("10")))

	main, sub, spent := l.Aggregate()
	assertAmount(t, "130", main)
	assertAmount(t, "15", sub)
	assertAmount(t, "5", spent)
	assert.Equal(t, []common.Address{bob, alice}, l.Principals())
}
