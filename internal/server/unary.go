package server

import (
	"context"

	"google.golang.org/grpc"
)

// Unary builds the MethodDesc of one unary RPC from a typed handler func.
// Services describe themselves with grpc.ServiceDesc built from these.
//
// Example:
//
//	server.Unary("matcha.v1.ChatService", "Post", h.Post)
func Unary[Req, Resp any](service, method string, call func(context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + service + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc assembles a unary-only service description.
func ServiceDesc(service, metadata string, methods ...grpc.MethodDesc) *grpc.ServiceDesc {
	return &grpc.ServiceDesc{
		ServiceName: service,
		HandlerType: (*any)(nil),
		Methods:     methods,
		Streams:     []grpc.StreamDesc{},
		Metadata:    metadata,
	}
}
