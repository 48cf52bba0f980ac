package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	clientServiceName  = "lattice.keeper.Client"
	forwardServiceName = "lattice.keeper.Forward"
)

// ClientServer is the client-facing RPC surface: one request/response
// call per ZK op, plus a server-streamed watch-notification feed per
// session.
type ClientServer interface {
	Request(context.Context, *OpRequest) (*OpResponse, error)
	Watch(*WatchRequest, WatchStreamServer) error
}

// ForwardServer is the internal, leader-only surface a non-leader node
// calls when it must commit a write it cannot itself propose.
type ForwardServer interface {
	Forward(context.Context, *ForwardRequest) (*ForwardResponse, error)
}

// WatchStreamServer is the server-side half of the Watch streaming
// RPC, narrowed from grpc.ServerStream the way protoc-gen-go-grpc
// narrows it for a generated streaming method.
type WatchStreamServer interface {
	Send(*WatchEvent) error
	grpc.ServerStream
}

type watchStreamServer struct {
	grpc.ServerStream
}

func (s *watchStreamServer) Send(evt *WatchEvent) error {
	return s.ServerStream.SendMsg(evt)
}

func clientRequestHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(OpRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClientServer).Request(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: clientServiceName + "/Request"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ClientServer).Request(ctx, req.(*OpRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func clientWatchHandler(srv any, stream grpc.ServerStream) error {
	req := new(WatchRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(ClientServer).Watch(req, &watchStreamServer{ServerStream: stream})
}

func forwardHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(ForwardRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ForwardServer).Forward(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: forwardServiceName + "/Forward"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ForwardServer).Forward(ctx, req.(*ForwardRequest))
	}
	return interceptor(ctx, req, info, handler)
}

var clientServiceDesc = grpc.ServiceDesc{
	ServiceName: clientServiceName,
	HandlerType: (*ClientServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Request", Handler: clientRequestHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Watch", Handler: clientWatchHandler, ServerStreams: true},
	},
}

var forwardServiceDesc = grpc.ServiceDesc{
	ServiceName: forwardServiceName,
	HandlerType: (*ForwardServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Forward", Handler: forwardHandler},
	},
}

func RegisterClientServer(s grpc.ServiceRegistrar, srv ClientServer) {
	s.RegisterService(&clientServiceDesc, srv)
}

func RegisterForwardServer(s grpc.ServiceRegistrar, srv ForwardServer) {
	s.RegisterService(&forwardServiceDesc, srv)
}

// ClientClient is the client-facing surface's caller side.
type ClientClient interface {
	Request(ctx context.Context, req *OpRequest, opts ...grpc.CallOption) (*OpResponse, error)
	Watch(ctx context.Context, req *WatchRequest, opts ...grpc.CallOption) (WatchStreamClient, error)
}

type WatchStreamClient interface {
	Recv() (*WatchEvent, error)
	grpc.ClientStream
}

type clientClient struct {
	cc grpc.ClientConnInterface
}

func NewClientClient(cc grpc.ClientConnInterface) ClientClient {
	return &clientClient{cc: cc}
}

func (c *clientClient) Request(ctx context.Context, req *OpRequest, opts ...grpc.CallOption) (*OpResponse, error) {
	resp := new(OpResponse)
	opts = append([]grpc.CallOption{CallOption()}, opts...)
	if err := c.cc.Invoke(ctx, "/"+clientServiceName+"/Request", req, resp, opts...); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *clientClient) Watch(ctx context.Context, req *WatchRequest, opts ...grpc.CallOption) (WatchStreamClient, error) {
	opts = append([]grpc.CallOption{CallOption()}, opts...)
	stream, err := c.cc.NewStream(ctx, &clientServiceDesc.Streams[0], "/"+clientServiceName+"/Watch", opts...)
	if err != nil {
		return nil, err
	}
	cs := &watchStreamClient{ClientStream: stream}
	if err := cs.SendMsg(req); err != nil {
		return nil, err
	}
	if err := cs.CloseSend(); err != nil {
		return nil, err
	}
	return cs, nil
}

type watchStreamClient struct {
	grpc.ClientStream
}

func (c *watchStreamClient) Recv() (*WatchEvent, error) {
	evt := new(WatchEvent)
	if err := c.ClientStream.RecvMsg(evt); err != nil {
		return nil, err
	}
	return evt, nil
}

// ForwardClient is the internal forwarding surface's caller side,
// dialed by a non-leader server against whichever peer it believes is
// the current leader.
type ForwardClient interface {
	Forward(ctx context.Context, req *ForwardRequest, opts ...grpc.CallOption) (*ForwardResponse, error)
}

type forwardClient struct {
	cc grpc.ClientConnInterface
}

func NewForwardClient(cc grpc.ClientConnInterface) ForwardClient {
	return &forwardClient{cc: cc}
}

func (c *forwardClient) Forward(ctx context.Context, req *ForwardRequest, opts ...grpc.CallOption) (*ForwardResponse, error) {
	resp := new(ForwardResponse)
	opts = append([]grpc.CallOption{CallOption()}, opts...)
	if err := c.cc.Invoke(ctx, "/"+forwardServiceName+"/Forward", req, resp, opts...); err != nil {
		return nil, err
	}
	return resp, nil
}

// NotLeaderError wraps the gRPC status a ClientServer.Request
// implementation returns when it cannot service a write itself and
// forwarding also failed or was not configured.
func NotLeaderError(leaderAddr string) error {
	if leaderAddr == "" {
		return status.Error(codes.Unavailable, "grpcapi: no known leader")
	}
	return status.Errorf(codes.FailedPrecondition, "grpcapi: not leader, current leader at %s", leaderAddr)
}
