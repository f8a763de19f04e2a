package api

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/autoannotate/internal/logging"
	"github.com/solatis/autoannotate/internal/tree"
)

type applyRequest struct {
	Document json.RawMessage `json:"document"`
	Module   string          `json:"module,omitempty"`
	Variant  string          `json:"variant,omitempty"`
}

// Apply runs the rule set over the request document and returns the
// annotated document with its changes and diagnostics.
func (s *AnnotatorService) Apply(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var req applyRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, toStatus(fmt.Errorf("%w: %w", ErrInvalidDocument, err))
	}
	if len(req.Document) == 0 || string(req.Document) == "null" {
		return nil, toStatus(fmt.Errorf("%w: missing document", ErrInvalidDocument))
	}

	doc, err := tree.Decode(req.Document, tree.FormatJSON)
	if err != nil {
		return nil, toStatus(fmt.Errorf("%w: %w", ErrInvalidDocument, err))
	}
	if req.Module != "" {
		doc.Module = req.Module
	}
	if req.Variant != "" {
		doc.Variant = req.Variant
	}

	logger := logging.GetLogger("api")
	res, err := s.annotator.Annotate(ctx, doc)
	if err != nil {
		logger.Warn().Err(err).Str("module", doc.Module).Msg("Apply failed")
		return nil, toStatus(err)
	}
	logger.Info().
		Str("run_id", string(res.RunID)).
		Str("module", doc.Module).
		Int("applied", res.Stats.Applied).
		Int("failures", res.Stats.Failures).
		Msg("Apply completed")

	return encodeStruct(res)
}

// decodeStruct converts a Struct into dest through its JSON form.
func decodeStruct(in *structpb.Struct, dest any) error {
	if in == nil {
		in = &structpb.Struct{}
	}
	data, err := protojson.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

// encodeStruct converts v into a Struct through its JSON form.
func encodeStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, toStatus(fmt.Errorf("encode response: %w", err))
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, toStatus(fmt.Errorf("encode response: %w", err))
	}
	return out, nil
}
