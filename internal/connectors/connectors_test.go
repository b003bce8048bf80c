package connectors

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/xela07ax/agentvault/internal/domain"
)

func testOrder(amount uint64, zeroForOne bool) domain.SwapOrder {
	return domain.SwapOrder{
		Route: domain.Route{
			ID:     common.HexToHash("0x01"),
			Asset0: common.HexToAddress("0x0a"),
			Asset1: common.HexToAddress("0x0b"),
			Fee:    3000,
			Pool:   common.HexToAddress("0x0c"),
		},
		ZeroForOne:   zeroForOne,
		AmountIn:     *uint256.NewInt(amount),
		MinAmountOut: *uint256.NewInt(1),
		Agent:        common.HexToAddress("0xa9e7"),
		Principal:    common.HexToAddress("0xa11ce"),
	}
}

func TestMockPoolChargesFeeAndRate(t *testing.T) {
	pool := NewMockPool(2, 1)

	out, err := pool.ExecuteSwap(context.Background(), testOrder(1_000_000, true))
	require.NoError(t, err)
	assert.Equal(t, uint64(1_994_000), out.Uint64())

	out, err = pool.ExecuteSwap(context.Background(), testOrder(1_000_000, false))
	require.NoError(t, err)
	assert.Equal(t, uint64(498_500), out.Uint64())
	assert.Equal(t, 2, pool.Calls())
}

func TestMockPoolInjectedFailures(t *testing.T) {
	pool := NewMockPool(1, 1)
	boom := errors.New("pool reverted")
	pool.FailNext(boom)

	_, err := pool.ExecuteSwap(context.Background(), testOrder(100, true))
	assert.ErrorIs(t, err, boom)

	_, err = pool.ExecuteSwap(context.Background(), testOrder(100, true))
	assert.NoError(t, err)
}

func TestMockPoolHonoursContext(t *testing.T) {
	pool := NewMockPool(1, 1).WithLatency(time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pool.ExecuteSwap(ctx, testOrder(100, true))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOrderWireRoundTrip(t *testing.T) {
	o := testOrder(123456789, true)
	o.AmountIn = domain.MustUnits("1000000")

	s, err := EncodeOrder(o)
	require.NoError(t, err)
	back, err := DecodeOrder(s)
	require.NoError(t, err)

	assert.Equal(t, o.Route.ID, back.Route.ID)
	assert.Equal(t, o.Route.Fee, back.Route.Fee)
	assert.Equal(t, o.AmountIn, back.AmountIn)
	assert.Equal(t, o.Principal, back.Principal)
	assert.True(t, back.ZeroForOne)
}

func dialBackend(t *testing.T, backend Backend) *GRPCAdapter {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterSwapBackend(srv, backend)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewGRPCAdapter(conn, time.Second)
}

func TestGRPCAdapterExecutesRemotely(t *testing.T) {
	pool := NewMockPool(1, 1)
	adapter := dialBackend(t, pool)

	out, err := adapter.ExecuteSwap(context.Background(), testOrder(1_000_000, true))
	require.NoError(t, err)
	assert.Equal(t, uint64(997_000), out.Uint64())
	assert.Equal(t, 1, pool.Calls())
}

func TestGRPCAdapterMapsErrors(t *testing.T) {
	pool := NewMockPool(1, 1)
	adapter := dialBackend(t, pool)

	pool.FailNext(&ThrottleError{RetryAfter: 250 * time.Millisecond, Cause: errors.New("busy")})
	_, err := adapter.ExecuteSwap(context.Background(), testOrder(100, true))
	var tErr *ThrottleError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, 250*time.Millisecond, tErr.RetryAfter)

	pool.FailNext(errors.New("pool reverted"))
	_, err = adapter.ExecuteSwap(context.Background(), testOrder(100, true))
	require.Error(t, err)
	assert.False(t, IsThrottle(err))
	assert.Contains(t, err.Error(), "pool reverted")
}
