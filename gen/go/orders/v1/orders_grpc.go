package orderspb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	OrderEvents_ProcessOrderStream_FullMethodName = "/orders.v1.OrderEvents/ProcessOrderStream"
	OrderEvents_ProcessFollowUp_FullMethodName    = "/orders.v1.OrderEvents/ProcessFollowUp"
)

// OrderEventsClient is the client API for the OrderEvents service.
type OrderEventsClient interface {
	// ProcessOrderStream opens the per-order event stream and holds it until
	// the order's deadline.
	ProcessOrderStream(ctx context.Context, in *OrderStreamRequest, opts ...grpc.CallOption) (OrderEvents_ProcessOrderStreamClient, error)
	// ProcessFollowUp applies a follow-up to many proposals in one call.
	ProcessFollowUp(ctx context.Context, in *ProcessFollowUpRequest, opts ...grpc.CallOption) (*ProcessFollowUpResponse, error)
}

type orderEventsClient struct {
	cc grpc.ClientConnInterface
}

func NewOrderEventsClient(cc grpc.ClientConnInterface) OrderEventsClient {
	return &orderEventsClient{cc}
}

func (c *orderEventsClient) ProcessOrderStream(ctx context.Context, in *OrderStreamRequest, opts ...grpc.CallOption) (OrderEvents_ProcessOrderStreamClient, error) {
	cOpts := append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	stream, err := c.cc.NewStream(ctx, &OrderEvents_ServiceDesc.Streams[0], OrderEvents_ProcessOrderStream_FullMethodName, cOpts...)
	if err != nil {
		return nil, err
	}
	x := &orderEventsProcessOrderStreamClient{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type OrderEvents_ProcessOrderStreamClient interface {
	Recv() (*OrderStreamEvent, error)
	grpc.ClientStream
}

type orderEventsProcessOrderStreamClient struct {
	grpc.ClientStream
}

func (x *orderEventsProcessOrderStreamClient) Recv() (*OrderStreamEvent, error) {
	m := new(OrderStreamEvent)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *orderEventsClient) ProcessFollowUp(ctx context.Context, in *ProcessFollowUpRequest, opts ...grpc.CallOption) (*ProcessFollowUpResponse, error) {
	cOpts := append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	out := new(ProcessFollowUpResponse)
	if err := c.cc.Invoke(ctx, OrderEvents_ProcessFollowUp_FullMethodName, in, out, cOpts...); err != nil {
		return nil, err
	}
	return out, nil
}

// OrderEventsServer is the server API for the OrderEvents service.
// All implementations must embed UnimplementedOrderEventsServer.
type OrderEventsServer interface {
	ProcessOrderStream(*OrderStreamRequest, OrderEvents_ProcessOrderStreamServer) error
	ProcessFollowUp(context.Context, *ProcessFollowUpRequest) (*ProcessFollowUpResponse, error)
	mustEmbedUnimplementedOrderEventsServer()
}

// UnimplementedOrderEventsServer must be embedded for forward compatibility.
type UnimplementedOrderEventsServer struct{}

func (UnimplementedOrderEventsServer) ProcessOrderStream(*OrderStreamRequest, OrderEvents_ProcessOrderStreamServer) error {
	return status.Error(codes.Unimplemented, "method ProcessOrderStream not implemented")
}

func (UnimplementedOrderEventsServer) ProcessFollowUp(context.Context, *ProcessFollowUpRequest) (*ProcessFollowUpResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ProcessFollowUp not implemented")
}

func (UnimplementedOrderEventsServer) mustEmbedUnimplementedOrderEventsServer() {}

type OrderEvents_ProcessOrderStreamServer interface {
	Send(*OrderStreamEvent) error
	grpc.ServerStream
}

type orderEventsProcessOrderStreamServer struct {
	grpc.ServerStream
}

func (x *orderEventsProcessOrderStreamServer) Send(m *OrderStreamEvent) error {
	return x.ServerStream.SendMsg(m)
}

func RegisterOrderEventsServer(s grpc.ServiceRegistrar, srv OrderEventsServer) {
	s.RegisterService(&OrderEvents_ServiceDesc, srv)
}

func _OrderEvents_ProcessOrderStream_Handler(srv any, stream grpc.ServerStream) error {
	m := new(OrderStreamRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(OrderEventsServer).ProcessOrderStream(m, &orderEventsProcessOrderStreamServer{ServerStream: stream})
}

func _OrderEvents_ProcessFollowUp_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ProcessFollowUpRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderEventsServer).ProcessFollowUp(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: OrderEvents_ProcessFollowUp_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrderEventsServer).ProcessFollowUp(ctx, req.(*ProcessFollowUpRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// OrderEvents_ServiceDesc is the grpc.ServiceDesc for the OrderEvents service.
var OrderEvents_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "orders.v1.OrderEvents",
	HandlerType: (*OrderEventsServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ProcessFollowUp",
			Handler:    _OrderEvents_ProcessFollowUp_Handler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "ProcessOrderStream",
			Handler:       _OrderEvents_ProcessOrderStream_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "orders/v1/orders.proto",
}
