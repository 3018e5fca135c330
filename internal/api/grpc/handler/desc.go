package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Service names of the API.
const (
	SessionService    = "agro.Session"
	NavigationService = "agro.Navigation"
	StoresService     = "agro.Stores"
	DashboardService  = "agro.Dashboard"
)

// FullMethod returns the gRPC method path of a service method.
func FullMethod(service, method string) string {
	return "/" + service + "/" + method
}

// SessionServer is the session service: login, logout and the current state.
type SessionServer interface {
	Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Logout(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	State(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

// NavigationServer is the route service.
type NavigationServer interface {
	Go(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	Back(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	Current(ctx context.Context, req *emptypb.Empty) (*wrapperspb.StringValue, error)
	Reachable(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

// StoresServer exposes the domain stores.
type StoresServer interface {
	Snapshot(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	Retry(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	Refresh(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	Status(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

// DashboardServer serves the home screen summary.
type DashboardServer interface {
	Summary(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

var SessionServiceDesc = grpc.ServiceDesc{
	ServiceName: SessionService,
	HandlerType: (*SessionServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(SessionService, "Login", newStruct, SessionServer.Login),
		unary(SessionService, "Logout", newEmpty, SessionServer.Logout),
		unary(SessionService, "State", newEmpty, SessionServer.State),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "agro.proto",
}

var NavigationServiceDesc = grpc.ServiceDesc{
	ServiceName: NavigationService,
	HandlerType: (*NavigationServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(NavigationService, "Go", newString, NavigationServer.Go),
		unary(NavigationService, "Back", newEmpty, NavigationServer.Back),
		unary(NavigationService, "Current", newEmpty, NavigationServer.Current),
		unary(NavigationService, "Reachable", newEmpty, NavigationServer.Reachable),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "agro.proto",
}

var StoresServiceDesc = grpc.ServiceDesc{
	ServiceName: StoresService,
	HandlerType: (*StoresServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(StoresService, "Snapshot", newString, StoresServer.Snapshot),
		unary(StoresService, "Retry", newString, StoresServer.Retry),
		unary(StoresService, "Refresh", newEmpty, StoresServer.Refresh),
		unary(StoresService, "Status", newEmpty, StoresServer.Status),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "agro.proto",
}

var DashboardServiceDesc = grpc.ServiceDesc{
	ServiceName: DashboardService,
	HandlerType: (*DashboardServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(DashboardService, "Summary", newEmpty, DashboardServer.Summary),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "agro.proto",
}

func newStruct() *structpb.Struct        { return new(structpb.Struct) }
func newEmpty() *emptypb.Empty           { return new(emptypb.Empty) }
func newString() *wrapperspb.StringValue { return new(wrapperspb.StringValue) }

// unary builds the method descriptor protoc-gen-go-grpc would generate for a
// unary method of server type S.
func unary[S any, Req proto.Message, Resp proto.Message](
	service, method string,
	newReq func() Req,
	call func(S, context.Context, Req) (Resp, error),
) grpc.MethodDesc {
	fullMethod := FullMethod(service, method)

	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
