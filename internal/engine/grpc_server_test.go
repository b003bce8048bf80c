package engine

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/xela07ax/agentvault/internal/domain"
)

// tokenTable maps raw bearer tokens to claims.
type tokenTable map[string]*domain.CustomClaims

func (t tokenTable) VerifyToken(tok string) (*domain.CustomClaims, error) {
	if c, ok := t[tok]; ok {
		return c, nil
	}
	return nil, errors.New("unknown token")
}

func startGateway(t *testing.T, f *fixture) *grpc.ClientConn {
	t.Helper()
	tokens := tokenTable{
		"Bearer agent":  {Address: agent.Hex(), Scopes: map[string]bool{domain.ScopeAgent: true}},
		"Bearer nobody": {Address: stranger.Hex(), Scopes: map[string]bool{domain.ScopeAgent: true}},
	}

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(UnaryAuthInterceptor(tokens)))
	NewGRPCGatewayServer(f.v).Register(srv)
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
	return conn
}

func submit(ctx context.Context, conn *grpc.ClientConn, token string, body map[string]interface{}) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(body)
	if err != nil {
		return nil, err
	}
	if token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", token, "x-trace-id", "trace-1")
	}
	out := new(structpb.Struct)
	err = conn.Invoke(ctx, AgentGatewaySubmitSwap, in, out)
	return out, err
}

func TestGatewaySubmitSwap(t *testing.T) {
	f := newFixture(t, "0")
	conn := startGateway(t, f)
	body := map[string]interface{}{
		"agent":          agent.Hex(),
		"principal":      alice.Hex(),
		"route_id":       f.route.Hex(),
		"zero_for_one":   true,
		"amount_in":      "60",
		"min_amount_out": "50",
	}

	out, err := submit(f.ctx, conn, "Bearer agent", body)
	require.NoError(t, err)
	assert.Equal(t, string(domain.SwapExecuted), out.Fields["status"].GetStringValue())
	assert.Equal(t, "59.82", out.Fields["amount_out"].GetStringValue())

	events := f.v.Events(0, 0)
	assert.Equal(t, "trace-1", events[len(events)-1].TraceID)

	// the caller comes from the token: a stranger cannot act for the agent
	out, err = submit(f.ctx, conn, "Bearer nobody", body)
	require.NoError(t, err)
	assert.Equal(t, string(domain.SwapRejected), out.Fields["status"].GetStringValue())
	assert.Equal(t, domain.CodeNotController, out.Fields["error_code"].GetStringValue())
}

func TestGatewayRejectsBadCalls(t *testing.T) {
	f := newFixture(t, "0")
	conn := startGateway(t, f)

	_, err := submit(f.ctx, conn, "", map[string]interface{}{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = submit(f.ctx, conn, "Bearer forged", map[string]interface{}{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = submit(f.ctx, conn, "Bearer agent", map[string]interface{}{"amount_in": "lots"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestDecodeSwapRequestRejectsMalformedHex(t *testing.T) {
	valid := func() map[string]interface{} {
		return map[string]interface{}{
			"agent":     agent.Hex(),
			"principal": alice.Hex(),
			"amount_in": "1",
		}
	}

	in, err := structpb.NewStruct(valid())
	require.NoError(t, err)
	req, err := DecodeSwapRequest(in)
	require.NoError(t, err)
	assert.Equal(t, agent, req.Agent)
	assert.Equal(t, common.Hash{}, req.RouteID)

	cases := []struct {
		name, key, value string
		want             error
	}{
		{"short agent", "agent", "0xa9e7", domain.ErrMalformedAddress},
		{"garbage principal", "principal", "not-an-address", domain.ErrMalformedAddress},
		{"missing principal", "principal", "", domain.ErrMalformedAddress},
		{"short route", "route_id", "0x1234", domain.ErrMalformedHash},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := valid()
			body[tc.key] = tc.value
			in, err := structpb.NewStruct(body)
			require.NoError(t, err)
			_, err = DecodeSwapRequest(in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestGatewayRejectsShortAddress(t *testing.T) {
	f := newFixture(t, "0")
	conn := startGateway(t, f)

	_, err := submit(f.ctx, conn, "Bearer agent", map[string]interface{}{
		"agent":     "0xa9e7",
		"principal": alice.Hex(),
		"amount_in": "1",
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Empty(t, f.pool.Calls())
}
