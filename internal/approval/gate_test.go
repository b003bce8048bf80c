package approval

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/agentvault/internal/domain"
)

func request() domain.PendingRequest {
	return domain.PendingRequest{
		Agent:     common.HexToAddress("0xa9e7"),
		Principal: common.HexToAddress("0xa11ce"),
		AmountIn:  domain.MustUnits("5"),
		Reason:    "sensitive",
	}
}

func TestSingleSlot(t *testing.T) {
	g := NewGate()

	parked, err := g.Park(request())
	require.NoError(t, err)
	assert.NotEmpty(t, parked.ID)
	assert.False(t, parked.CreatedAt.IsZero())

	_, err = g.Park(request())
	assert.ErrorIs(t, err, domain.ErrRequestAlreadyPending)

	got, ok := g.Pending()
	require.True(t, ok)
	assert.Equal(t, parked.ID, got.ID)
}

func TestClaimKeepsSlotUntilComplete(t *testing.T) {
	g := NewGate()
	parked, err := g.Park(request())
	require.NoError(t, err)

	claimed, err := g.Claim()
	require.NoError(t, err)
	assert.Equal(t, parked.ID, claimed.ID)

	// a failed execution leaves the request pending
	_, ok := g.Pending()
	assert.True(t, ok)

	done, err := g.Complete()
	require.NoError(t, err)
	assert.True(t, done.Approved)
	assert.True(t, done.Executed)

	_, ok = g.Pending()
	assert.False(t, ok)
	_, err = g.Claim()
	assert.ErrorIs(t, err, domain.ErrNoPendingRequest)
}

func TestReject(t *testing.T) {
	g := NewGate()
	_, err := g.Reject()
	assert.ErrorIs(t, err, domain.ErrNoPendingRequest)

	_, err = g.Park(request())
	require.NoError(t, err)
	rejected, err := g.Reject()
	require.NoError(t, err)
	assert.Equal(t, "sensitive", rejected.Reason)

	// slot is free again
	_, err = g.Park(request())
	assert.NoError(t, err)
}

func TestParkRequiresAgent(t *testing.T) {
	g := NewGate()
	_, err := g.Park(domain.PendingRequest{})
	assert.ErrorIs(t, err, domain.ErrAddressZero)
}
