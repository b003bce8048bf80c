package connectors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/xela07ax/agentvault/internal/domain"
)

// Wire contract of the remote swap backend. Messages are google.protobuf.Struct
// so no generated stubs are needed on either side.
const (
	SwapBackendService       = "agentvault.swap.v1.SwapBackend"
	SwapBackendExecuteMethod = "/" + SwapBackendService + "/Execute"
)

// Response status codes carried in the "status_code" field.
const (
	StatusOK        = 0
	StatusThrottled = 429
	StatusFailed    = 500
)

// SwapBackendServer is implemented by a process that executes swaps for the vault.
type SwapBackendServer interface {
	Execute(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var SwapBackendServiceDesc = grpc.ServiceDesc{
	ServiceName: SwapBackendService,
	HandlerType: (*SwapBackendServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Execute", Handler: swapBackendExecuteHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "agentvault/swap/v1/backend.proto",
}

func swapBackendExecuteHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SwapBackendServer).Execute(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SwapBackendExecuteMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SwapBackendServer).Execute(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// RegisterSwapBackend exposes backend over gRPC.
func RegisterSwapBackend(s grpc.ServiceRegistrar, backend Backend) {
	s.RegisterService(&SwapBackendServiceDesc, &backendServer{backend: backend})
}

type backendServer struct {
	backend Backend
}

func (s *backendServer) Execute(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	order, err := DecodeOrder(req)
	if err != nil {
		return encodeResult(uint256.Int{}, StatusFailed, err.Error(), 0)
	}

	out, err := s.backend.ExecuteSwap(ctx, order)
	if err != nil {
		var tErr *ThrottleError
		if errors.As(err, &tErr) {
			return encodeResult(uint256.Int{}, StatusThrottled, err.Error(), tErr.RetryAfter)
		}
		return encodeResult(uint256.Int{}, StatusFailed, err.Error(), 0)
	}
	return encodeResult(out, StatusOK, "", 0)
}

// EncodeOrder converts an order into the wire struct.
func EncodeOrder(o domain.SwapOrder) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"route_id":       o.Route.ID.Hex(),
		"asset0":         o.Route.Asset0.Hex(),
		"asset1":         o.Route.Asset1.Hex(),
		"fee":            float64(o.Route.Fee),
		"pool":           o.Route.Pool.Hex(),
		"zero_for_one":   o.ZeroForOne,
		"amount_in":      o.AmountIn.Dec(),
		"min_amount_out": o.MinAmountOut.Dec(),
		"agent":          o.Agent.Hex(),
		"principal":      o.Principal.Hex(),
	})
}

// DecodeOrder is the inverse of EncodeOrder.
func DecodeOrder(s *structpb.Struct) (domain.SwapOrder, error) {
	var o domain.SwapOrder
	f := s.GetFields()

	str := func(key string) string { return f[key].GetStringValue() }

	o.Route = domain.Route{
		ID:      common.HexToHash(str("route_id")),
		Asset0:  common.HexToAddress(str("asset0")),
		Asset1:  common.HexToAddress(str("asset1")),
		Fee:     uint32(f["fee"].GetNumberValue()),
		Pool:    common.HexToAddress(str("pool")),
		Enabled: true,
	}
	o.ZeroForOne = f["zero_for_one"].GetBoolValue()
	o.Agent = common.HexToAddress(str("agent"))
	o.Principal = common.HexToAddress(str("principal"))

	var err error
	if o.AmountIn, err = domain.ParseBaseUnits(str("amount_in")); err != nil {
		return o, err
	}
	if o.MinAmountOut, err = domain.ParseBaseUnits(str("min_amount_out")); err != nil {
		return o, err
	}
	return o, nil
}

func encodeResult(out uint256.Int, code int, msg string, retryAfter time.Duration) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"amount_out":     out.Dec(),
		"status_code":    float64(code),
		"error_message":  msg,
		"retry_after_ms": float64(retryAfter.Milliseconds()),
	})
}

// DecodeResult turns a wire response into an amount or a typed error.
func DecodeResult(s *structpb.Struct) (uint256.Int, error) {
	f := s.GetFields()
	code := int(f["status_code"].GetNumberValue())
	msg := f["error_message"].GetStringValue()

	switch code {
	case StatusOK:
		return domain.ParseBaseUnits(f["amount_out"].GetStringValue())
	case StatusThrottled:
		return uint256.Int{}, &ThrottleError{
			RetryAfter: time.Duration(f["retry_after_ms"].GetNumberValue()) * time.Millisecond,
			Cause:      errors.New(msg),
		}
	default:
		return uint256.Int{}, fmt.Errorf("backend returned error [%d]: %s", code, msg)
	}
}
