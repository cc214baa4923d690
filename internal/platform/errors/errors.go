package errors

import (
	"strconv"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/status"
)

// Domain is the error domain for pass ledger errors.
const Domain = "github.com/fighterspassapp/dp-pass-app"

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code              // Machine-readable error code
	Message  string            // Internal message (for logs/telemetry)
	Metadata map[string]string // Additional context for templating
	Cause    error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a simple domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WithMetadata creates a domain error with metadata for i18n templating.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Metadata: metadata,
	}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithMetadata creates a domain error with both metadata and a cause.
func WrapWithMetadata(code Code, message string, metadata map[string]string, cause error) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Metadata: metadata,
		Cause:    cause,
	}
}

// ToGRPCStatus converts the error to a gRPC status with errdetails.
// The status message contains the internal message for logging.
// The LocalizedMessage contains the user-facing translated message.
func (e *Error) ToGRPCStatus(locale string, userMessage string) error {
	grpcCode := e.Code.GRPCCode()
	st := status.New(grpcCode, e.Message)

	// Attach structured error details
	st, err := st.WithDetails(
		&errdetails.ErrorInfo{
			Reason:   string(e.Code),
			Domain:   Domain,
			Metadata: e.Metadata,
		},
		&errdetails.LocalizedMessage{
			Locale:  locale,
			Message: userMessage,
		},
	)
	if err != nil {
		// If we can't attach details, return the basic status
		return status.New(grpcCode, e.Message).Err()
	}
	return st.Err()
}

// Validation reports input rejected by a ledger rule. The constraint names
// the failed rule and is exposed in metadata.
func Validation(constraint, message string) *Error {
	return WithMetadata(CodeValidation, message, map[string]string{
		"Constraint": constraint,
	})
}

// AuthFailed reports a failed sign-in. The reason distinguishes an unknown
// account from a wrong password.
func AuthFailed(reason, message string) *Error {
	return WithMetadata(CodeAuthFailed, message, map[string]string{
		"Reason": reason,
	})
}

// PermissionDenied reports a caller lacking the administrator role.
func PermissionDenied(message string) *Error {
	return New(CodePermissionDenied, message)
}

// NotFound reports a missing entity.
func NotFound(entity, key string) *Error {
	return WithMetadata(CodeNotFound, entity+" not found", map[string]string{
		"Entity": entity,
		"Key":    key,
	})
}

// InsufficientBalance reports a debit larger than the available balance.
func InsufficientBalance(kind string, balance, amount int64) *Error {
	return WithMetadata(CodeInsufficientBalance, "insufficient balance", map[string]string{
		"Kind":    kind,
		"Balance": strconv.FormatInt(balance, 10),
		"Amount":  strconv.FormatInt(amount, 10),
	})
}

// PartialFailure reports a write sequence that committed its first step but
// not its last.
func PartialFailure(message string, metadata map[string]string, cause error) *Error {
	return WrapWithMetadata(CodePartialFailure, message, metadata, cause)
}
