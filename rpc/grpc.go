package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// CustodianServer is the server API for the Custodian gRPC service.
//
// Requests and replies use protobuf well-known types; structured payloads
// are JSON-encoded model types inside BytesValue, so no codegen is needed.
type CustodianServer interface {
	Submit(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	GetConfig(context.Context, *emptypb.Empty) (*wrapperspb.BytesValue, error)
	GetAccount(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	GetVault(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
	IsExecuted(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
	Events(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

// UnimplementedCustodianServer can be embedded to have forward compatible implementations.
type UnimplementedCustodianServer struct{}

func (UnimplementedCustodianServer) Submit(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Submit not implemented")
}
func (UnimplementedCustodianServer) GetConfig(context.Context, *emptypb.Empty) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method GetConfig not implemented")
}
func (UnimplementedCustodianServer) GetAccount(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method GetAccount not implemented")
}
func (UnimplementedCustodianServer) GetVault(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method GetVault not implemented")
}
func (UnimplementedCustodianServer) IsExecuted(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	return nil, status.Error(codes.Unimplemented, "method IsExecuted not implemented")
}
func (UnimplementedCustodianServer) Events(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Events not implemented")
}

func RegisterCustodianServer(s grpc.ServiceRegistrar, srv CustodianServer) {
	s.RegisterService(&Custodian_ServiceDesc, srv)
}

const serviceName = "xdao.custodian.rpc.v1.Custodian"

func fullMethod(name string) string { return "/" + serviceName + "/" + name }

// CustodianClient is the client API for the Custodian gRPC service.
type CustodianClient interface {
	Submit(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	GetConfig(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	GetAccount(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	GetVault(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	IsExecuted(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error)
	Events(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
}

type custodianClient struct{ cc grpc.ClientConnInterface }

func NewCustodianClient(cc grpc.ClientConnInterface) CustodianClient {
	return &custodianClient{cc: cc}
}

func (c *custodianClient) Submit(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, fullMethod("Submit"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *custodianClient) GetConfig(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, fullMethod("GetConfig"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *custodianClient) GetAccount(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, fullMethod("GetAccount"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *custodianClient) GetVault(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, fullMethod("GetVault"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *custodianClient) IsExecuted(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, fullMethod("IsExecuted"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *custodianClient) Events(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, fullMethod("Events"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// methodHandler is the shape of grpc.MethodDesc.Handler.
type methodHandler = func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error)

// unaryHandler builds a grpc.MethodDesc handler for one method.
func unaryHandler[Req any, PReq interface {
	*Req
}, Resp any](name string, call func(CustodianServer, context.Context, PReq) (Resp, error)) methodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := PReq(new(Req))
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CustodianServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(CustodianServer), ctx, req.(PReq))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Custodian_ServiceDesc is the grpc.ServiceDesc for the Custodian service.
var Custodian_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*CustodianServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Submit", Handler: unaryHandler[wrapperspb.BytesValue]("Submit", CustodianServer.Submit)},
		{MethodName: "GetConfig", Handler: unaryHandler[emptypb.Empty]("GetConfig", CustodianServer.GetConfig)},
		{MethodName: "GetAccount", Handler: unaryHandler[wrapperspb.BytesValue]("GetAccount", CustodianServer.GetAccount)},
		{MethodName: "GetVault", Handler: unaryHandler[wrapperspb.StringValue]("GetVault", CustodianServer.GetVault)},
		{MethodName: "IsExecuted", Handler: unaryHandler[wrapperspb.StringValue]("IsExecuted", CustodianServer.IsExecuted)},
		{MethodName: "Events", Handler: unaryHandler[wrapperspb.BytesValue]("Events", CustodianServer.Events)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "custodian.proto",
}
