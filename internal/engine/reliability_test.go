package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/agentvault/internal/connectors"
	"github.com/xela07ax/agentvault/internal/domain"
)

func testOrder() domain.SwapOrder {
	return domain.SwapOrder{
		Route:        domain.Route{ID: common.HexToHash("0x01")},
		ZeroForOne:   true,
		AmountIn:     domain.MustUnits("10"),
		MinAmountOut: domain.MustUnits("1"),
	}
}

func TestReliabilityRetriesThrottle(t *testing.T) {
	pool := connectors.NewMockPool(1, 1)
	pool.FailNext(
		&connectors.ThrottleError{RetryAfter: time.Millisecond},
		&connectors.ThrottleError{RetryAfter: time.Millisecond},
	)
	w := NewReliabilityWrapper(pool, ReliabilitySettings{Attempts: 3}, NewMetrics(nil))

	out, err := w.ExecuteSwap(context.Background(), testOrder())
	require.NoError(t, err)
	assert.Equal(t, "10", domain.FormatUnits(out))
	assert.Equal(t, 3, pool.Calls())
}

func TestReliabilityDoesNotRetryExecutionErrors(t *testing.T) {
	pool := connectors.NewMockPool(1, 1)
	boom := errors.New("reverted")
	pool.FailNext(boom)
	w := NewReliabilityWrapper(pool, ReliabilitySettings{Attempts: 3}, nil)

	_, err := w.ExecuteSwap(context.Background(), testOrder())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, pool.Calls())
}

func TestReliabilityGivesUpAfterAttempts(t *testing.T) {
	pool := connectors.NewMockPool(1, 1)
	throttle := &connectors.ThrottleError{RetryAfter: time.Millisecond}
	pool.FailNext(throttle, throttle, throttle)
	w := NewReliabilityWrapper(pool, ReliabilitySettings{Attempts: 2}, nil)

	_, err := w.ExecuteSwap(context.Background(), testOrder())
	assert.True(t, connectors.IsThrottle(err))
	assert.Equal(t, 2, pool.Calls())
}

func TestReliabilityBreakerOpens(t *testing.T) {
	pool := connectors.NewMockPool(1, 1)
	pool.FailNext(errors.New("a"), errors.New("b"))
	w := NewReliabilityWrapper(pool, ReliabilitySettings{CBFailures: 1, Attempts: 1}, NewMetrics(nil))

	for i := 0; i < 2; i++ {
		_, err := w.ExecuteSwap(context.Background(), testOrder())
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, w.State())

	_, err := w.ExecuteSwap(context.Background(), testOrder())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, pool.Calls())
}

func TestReliabilityQuoteForwards(t *testing.T) {
	w := NewReliabilityWrapper(connectors.NewMockPool(2, 1), ReliabilitySettings{}, nil)
	out, err := w.Quote(context.Background(), testOrder())
	require.NoError(t, err)
	assert.Equal(t, "20", domain.FormatUnits(out))
}

func TestParseSignal(t *testing.T) {
	cases := []struct {
		payload string
		id      string
		status  bool
		ok      bool
	}{
		{"0xabc:on", "0xabc", true, true},
		{"0xabc:off", "0xabc", false, true},
		{"0xabc:true", "0xabc", true, true},
		{"0xabc:false", "0xabc", false, true},
		{"0xabc:maybe", "", false, false},
		{":on", "", false, false},
		{"0xabc", "", false, false},
		{"a:b:on", "", false, false},
	}
	for _, tc := range cases {
		id, status, ok := ParseSignal(tc.payload)
		assert.Equal(t, tc.ok, ok, tc.payload)
		assert.Equal(t, tc.id, id, tc.payload)
		assert.Equal(t, tc.status, status, tc.payload)
	}
}

type staticFlags map[string][]string

func (s staticFlags) GetFlaggedAgents(_ context.Context, flag string) ([]string, error) {
	return s[flag], nil
}

func TestFlagsInitFromRepository(t *testing.T) {
	repo := staticFlags{FlagSandbox: {agent.Hex(), "not-an-address"}}
	sb := NewSandboxManager(nil, repo, zap.NewNop())

	require.NoError(t, sb.Init(context.Background()))
	assert.True(t, sb.IsSandbox(agent))
	assert.Equal(t, 1, len(sb.List()))

	sb.Set(context.Background(), agent, false)
	assert.False(t, sb.IsSandbox(agent))
	assert.Empty(t, sb.List())
}

func TestParseAgentIDsNormalizes(t *testing.T) {
	lower := strings.ToLower(agent.Hex())
	got := parseAgentIDs(zap.NewNop(), []string{lower, agent.Hex(), "0xa9e7", "", alice.Hex()[2:]})
	assert.Equal(t, []common.Address{agent, alice}, got)
}
