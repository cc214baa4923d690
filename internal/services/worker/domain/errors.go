package domain

import "errors"

type permanentError struct {
	cause error
}

func (e permanentError) Error() string {
	if e.cause == nil {
		return "permanent error"
	}
	return e.cause.Error()
}

func (e permanentError) Unwrap() error {
	return e.cause
}

// Permanent marks an error as non-retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{cause: err}
}

// retryable is implemented by transport errors that know whether a later
// attempt can succeed.
type retryable interface {
	Retryable() bool
}

// IsPermanent reports whether err was marked as non-retryable, either
// explicitly or by a transport error that declines retries.
func IsPermanent(err error) bool {
	var target permanentError
	if errors.As(err, &target) {
		return true
	}
	var r retryable
	if errors.As(err, &r) {
		return !r.Retryable()
	}
	return false
}
