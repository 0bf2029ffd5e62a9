// internal/errors/mapper.go
package errors

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
)

// Domain errors. Lower layers wrap these with fmt.Errorf("...: %w").
var (
	// Validation: rejected synchronously, no state change.
	ErrSelfTarget      = errors.New("cannot target yourself")
	ErrEmptyMessage    = errors.New("message cannot be empty")
	ErrMessageTooLong  = errors.New("message is too long")
	ErrInvalidArgument = errors.New("invalid argument")

	// Authorization: rejected, no state change, no notification.
	ErrBlocked    = errors.New("user not found or blocked")
	ErrNotMatched = errors.New("you must match to chat")

	// Precondition owned by the photo subsystem.
	ErrNoPhoto = errors.New("at least one photo is required")

	ErrUnauthenticated = errors.New("unauthenticated")
)

// validationError is implemented by validation.RequestValidationError.
type validationError interface {
	error
	IsValidation() bool
}

// Map converts repo/infra/domain errors into gRPC-friendly status errors.
// Keeps service layer clean by centralizing error mapping.
func Map(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var ve validationError
	switch {
	case errors.As(err, &ve) && ve.IsValidation():
		return status.Error(codes.InvalidArgument, ve.Error())

	case errors.Is(err, ErrSelfTarget),
		errors.Is(err, ErrEmptyMessage),
		errors.Is(err, ErrMessageTooLong),
		errors.Is(err, ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, ErrBlocked), errors.Is(err, ErrNotMatched):
		return status.Error(codes.PermissionDenied, err.Error())

	case errors.Is(err, ErrNoPhoto):
		return status.Error(codes.FailedPrecondition, err.Error())

	case errors.Is(err, ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, err.Error())

	case errors.Is(err, gorm.ErrRecordNotFound):
		return status.Error(codes.NotFound, "record not found")

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timed out")

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request was canceled")

	default:
		// fallback → bubble up error message for debugging
		return status.Error(codes.Internal, err.Error())
	}
}

// InvalidArgument creates a gRPC InvalidArgument error.
// Use this in service layer for bad input validation.
func InvalidArgument(msg string) error {
	return status.Error(codes.InvalidArgument, msg)
}

// Unauthenticated creates a gRPC Unauthenticated error.
func Unauthenticated(msg string) error {
	return status.Error(codes.Unauthenticated, msg)
}
