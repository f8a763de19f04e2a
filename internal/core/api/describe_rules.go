package api

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/autoannotate/internal/diag"
	"github.com/solatis/autoannotate/internal/types"
)

type describeRulesRequest struct {
	IfNoneMatch string `json:"ifNoneMatch,omitempty"`
}

type describeRulesResponse struct {
	ETag        string            `json:"etag"`
	NotModified bool              `json:"notModified"`
	Rules       []types.Rule      `json:"rules,omitempty"`
	Warnings    []diag.Diagnostic `json:"warnings,omitempty"`
}

// DescribeRules returns the loaded rule set and its ETag. When the request
// carries the current ETag in ifNoneMatch only the ETag is returned.
func (s *AnnotatorService) DescribeRules(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req describeRulesRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, toStatus(err)
	}

	etag := s.annotator.ETag()
	if req.IfNoneMatch != "" && req.IfNoneMatch == etag {
		return encodeStruct(describeRulesResponse{ETag: etag, NotModified: true})
	}

	rs := s.annotator.Rules()
	return encodeStruct(describeRulesResponse{
		ETag:     etag,
		Rules:    rs.Source(),
		Warnings: rs.Warnings(),
	})
}
