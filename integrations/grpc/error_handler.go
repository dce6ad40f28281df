package grpc

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/storefront/go-storefront/core"
)

// ErrorHandler converts storefront errors to gRPC status errors.
type ErrorHandler func(error) error

// DefaultErrorHandler maps storefront errors to gRPC status codes.
// Errors that already carry a status are returned unchanged, and internal
// errors are not described to the caller.
func DefaultErrorHandler(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	code := codeOf(err)
	if code == codes.Internal {
		return status.Error(codes.Internal, "something went wrong")
	}

	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		return status.Error(code, coreErr.Message)
	}
	return status.Error(code, err.Error())
}

func codeOf(err error) codes.Code {
	switch {
	case errors.Is(err, core.ErrInvalidQuantity),
		errors.Is(err, ErrMultipleAuthHeaders),
		errors.Is(err, ErrInvalidAuthFormat),
		errors.Is(err, ErrUnsupportedScheme):
		return codes.InvalidArgument
	case errors.Is(err, core.ErrAnonymous), errors.Is(err, core.ErrInvalidToken):
		return codes.Unauthenticated
	case errors.Is(err, core.ErrNotFound):
		return codes.NotFound
	default:
		return codes.Internal
	}
}
