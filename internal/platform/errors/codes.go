// Package errors provides structured error handling with i18n support.
package errors

import (
	stderrors "errors"

	"google.golang.org/grpc/codes"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Input and policy errors
	CodeValidation Code = "VALIDATION_FAILED"

	// Identity errors
	CodeAuthFailed       Code = "AUTH_FAILED"
	CodePermissionDenied Code = "PERMISSION_DENIED"

	// Ledger errors
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"
	CodePartialFailure      Code = "PARTIAL_FAILURE"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeValidation:
		return codes.InvalidArgument

	// Unauthenticated - unknown account or wrong password
	case CodeAuthFailed:
		return codes.Unauthenticated

	case CodePermissionDenied:
		return codes.PermissionDenied

	// FailedPrecondition - state doesn't allow operation
	case CodeInsufficientBalance:
		return codes.FailedPrecondition

	// NotFound - resource doesn't exist
	case CodeNotFound:
		return codes.NotFound

	// Aborted - a multi-step write stopped halfway
	case CodePartialFailure:
		return codes.Aborted

	default:
		return codes.Internal
	}
}

// CodeOf returns the code of the first domain error in err's chain.
func CodeOf(err error) Code {
	var domainErr *Error
	if stderrors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeUnknown
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	return stderrors.Is(err, &Error{Code: code})
}
