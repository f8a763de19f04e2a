// Package api exposes the annotation engine as the gRPC service
// autoannotate.v1.Annotator.
//
// Messages are google.protobuf.Struct values carrying the same JSON shapes
// the CLI reads and writes, so the service needs no generated code:
//
//	Apply          {document, module?, variant?}
//	               -> {runId, stats, document, changes, diagnostics}
//	DescribeRules  {ifNoneMatch?}
//	               -> {etag, notModified, rules?, warnings?}
package api

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "autoannotate.v1.Annotator"

// AnnotatorServer is the server API of the Annotator service.
type AnnotatorServer interface {
	Apply(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DescribeRules(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes the Annotator service for grpc.Server registration.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AnnotatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Apply", Handler: unaryHandler("Apply", AnnotatorServer.Apply)},
		{MethodName: "DescribeRules", Handler: unaryHandler("DescribeRules", AnnotatorServer.DescribeRules)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "autoannotate/v1/annotator.proto",
}

// RegisterAnnotatorServer registers srv with s.
func RegisterAnnotatorServer(s grpc.ServiceRegistrar, srv AnnotatorServer) {
	s.RegisterService(&ServiceDesc, srv)
}

type unaryMethod func(AnnotatorServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, method unaryMethod) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + ServiceName + "/" + name
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return method(srv.(AnnotatorServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return method(srv.(AnnotatorServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// AnnotatorService implements AnnotatorServer over an Annotator.
type AnnotatorService struct {
	annotator      *Annotator
	requestTimeout time.Duration
}

// NewAnnotatorService creates the service. A zero timeout leaves request
// deadlines to the caller.
func NewAnnotatorService(annotator *Annotator, requestTimeout time.Duration) (*AnnotatorService, error) {
	if annotator == nil {
		return nil, fmt.Errorf("annotator cannot be nil")
	}
	return &AnnotatorService{annotator: annotator, requestTimeout: requestTimeout}, nil
}

func (s *AnnotatorService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.requestTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.requestTimeout)
}
