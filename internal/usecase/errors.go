package usecase

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrorConfigurationInvalid       ErrorCode = "CONFIGURATION_INVALID"
	ErrorBackendUnavailable         ErrorCode = "BACKEND_UNAVAILABLE"
	ErrorBackend                    ErrorCode = "BACKEND_ERROR"
	ErrorComplianceCorrectionFailed ErrorCode = "COMPLIANCE_CORRECTION_FAILED"
	ErrorInternal                   ErrorCode = "INTERNAL_ERROR"
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// NewConfigurationError marks err as a fatal configuration problem.
func NewConfigurationError(reason string, err error) *Error {
	return newError(ErrorConfigurationInvalid, reason, err)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// classifyBackendError maps a failed generation call onto the taxonomy:
// responses carrying a status code are BACKEND_ERROR, anything else means the
// backend could not be reached.
func classifyBackendError(reason string, err error) *Error {
	var statusErr httpStatusCoder
	if errors.As(err, &statusErr) {
		return newError(ErrorBackend, fmt.Sprintf("%s_status_%d", reason, statusErr.HTTPStatusCode()), err)
	}
	return newError(ErrorBackendUnavailable, reason, err)
}
