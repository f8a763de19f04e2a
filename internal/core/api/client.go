package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// AnnotatorClient calls the Annotator service.
type AnnotatorClient struct {
	cc grpc.ClientConnInterface
}

// NewAnnotatorClient creates a client over cc.
func NewAnnotatorClient(cc grpc.ClientConnInterface) *AnnotatorClient {
	return &AnnotatorClient{cc: cc}
}

// Apply calls Annotator.Apply.
func (c *AnnotatorClient) Apply(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/Apply", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// DescribeRules calls Annotator.DescribeRules.
func (c *AnnotatorClient) DescribeRules(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/DescribeRules", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
