package api

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solatis/autoannotate/internal/types"
)

// toStatus maps an Annotate error to a gRPC status:
//
//	malformed or oversized document  INVALID_ARGUMENT
//	run store failure                UNAVAILABLE
//	deadline                         DEADLINE_EXCEEDED
//	cancellation                     CANCELED
//	anything else                    INTERNAL
func toStatus(err error) error {
	switch {
	case errors.Is(err, ErrInvalidDocument), errors.Is(err, types.ErrTooManyDeclarations):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrRecordRun):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
