package engine

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/xela07ax/agentvault/internal/domain"
	"github.com/xela07ax/agentvault/internal/infra/auth"
)

// Agent-facing gRPC surface. Messages are google.protobuf.Struct.
const (
	AgentGatewayService    = "agentvault.vault.v1.AgentGateway"
	AgentGatewaySubmitSwap = "/" + AgentGatewayService + "/SubmitSwap"
)

// AgentGatewayServer accepts swap submissions from agents.
type AgentGatewayServer interface {
	SubmitSwap(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var AgentGatewayServiceDesc = grpc.ServiceDesc{
	ServiceName: AgentGatewayService,
	HandlerType: (*AgentGatewayServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SubmitSwap", Handler: agentGatewaySubmitSwapHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "agentvault/vault/v1/gateway.proto",
}

func agentGatewaySubmitSwapHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AgentGatewayServer).SubmitSwap(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AgentGatewaySubmitSwap}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AgentGatewayServer).SubmitSwap(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// GRPCGatewayServer routes agent swaps into the vault.
type GRPCGatewayServer struct {
	vault *Vault
}

func NewGRPCGatewayServer(v *Vault) *GRPCGatewayServer {
	return &GRPCGatewayServer{vault: v}
}

// Register attaches the gateway to s.
func (s *GRPCGatewayServer) Register(srv grpc.ServiceRegistrar) {
	srv.RegisterService(&AgentGatewayServiceDesc, s)
}

func (s *GRPCGatewayServer) SubmitSwap(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	// 1. Caller comes from the verified token, never from the payload
	claims, ok := auth.ClaimsFrom(ctx)
	if !ok || !common.IsHexAddress(claims.Address) {
		return nil, status.Error(codes.Unauthenticated, "missing caller identity")
	}

	// 2. Decode the request
	req, err := DecodeSwapRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	req.Caller = common.HexToAddress(claims.Address)

	// 3. Same pipeline as HTTP; business rejections travel in the body
	res, err := s.vault.Swap(ctx, req)
	if err != nil {
		return structpb.NewStruct(map[string]interface{}{
			"status":        string(domain.SwapRejected),
			"error_code":    domain.CodeOf(err),
			"error_message": err.Error(),
		})
	}
	return EncodeSwapResult(res)
}

// DecodeSwapRequest reads a submission. Amounts are human units.
func DecodeSwapRequest(in *structpb.Struct) (domain.SwapRequest, error) {
	f := in.GetFields()
	str := func(k string) string { return f[k].GetStringValue() }

	req := domain.SwapRequest{
		ZeroForOne: f["zero_for_one"].GetBoolValue(),
		Sensitive:  f["sensitive"].GetBoolValue(),
	}

	var err error
	if req.Agent, err = domain.ParseAddress(str("agent")); err != nil {
		return req, fmt.Errorf("agent: %w", err)
	}
	if req.Principal, err = domain.ParseAddress(str("principal")); err != nil {
		return req, fmt.Errorf("principal: %w", err)
	}
	if id := str("route_id"); id != "" {
		if req.RouteID, err = domain.ParseHash(id); err != nil {
			return req, fmt.Errorf("route_id: %w", err)
		}
	}
	if req.AmountIn, err = domain.ParseUnits(str("amount_in")); err != nil {
		return req, err
	}
	if v := str("min_amount_out"); v != "" {
		if req.MinAmountOut, err = domain.ParseUnits(v); err != nil {
			return req, err
		}
	}
	return req, nil
}

// EncodeSwapResult renders a result with human amounts.
func EncodeSwapResult(res domain.SwapResult) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"status":     string(res.Status),
		"route_id":   res.RouteID.Hex(),
		"amount_in":  domain.FormatUnits(res.AmountIn),
		"amount_out": domain.FormatUnits(res.AmountOut),
		"request_id": res.RequestID,
		"seq":        float64(res.Seq),
	})
}
