package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name. Messages are
// google.protobuf.Struct so no generated code is needed on either side.
const ServiceName = "salonbook.availability.v1.AvailabilityService"

const (
	methodComputeSlots = "/" + ServiceName + "/ComputeSlots"
	methodCheckSlot    = "/" + ServiceName + "/CheckSlot"
)

type AvailabilityServer interface {
	ComputeSlots(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckSlot(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AvailabilityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ComputeSlots", Handler: computeSlotsHandler},
		{MethodName: "CheckSlot", Handler: checkSlotHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "salonbook/availability/v1/availability.proto",
}

func computeSlotsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AvailabilityServer).ComputeSlots(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodComputeSlots}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AvailabilityServer).ComputeSlots(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func checkSlotHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AvailabilityServer).CheckSlot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodCheckSlot}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AvailabilityServer).CheckSlot(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls AvailabilityService over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) ComputeSlots(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodComputeSlots, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CheckSlot(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodCheckSlot, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
