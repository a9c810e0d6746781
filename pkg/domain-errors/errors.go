// Package domainerrors carries typed error codes across service boundaries.
// Services wrap store/sentinel errors with a code; transports translate the
// code into their own status vocabulary without inspecting messages.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for propagation policy and transport mapping.
type Code string

const (
	// Generic codes.
	CodeValidation         Code = "validation"
	CodeInvariantViolation Code = "invariant_violation"
	CodeBadRequest         Code = "bad_request"
	CodeUnauthorized       Code = "unauthorized"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"

	// Trust-and-governance taxonomy. Policy-violation codes are terminal
	// states surfaced to humans, never silently retried; transient codes
	// are retryable with identical inputs.
	CodeEvidenceInvalid     Code = "evidence_invalid"
	CodeGuardSuspended      Code = "guard_suspended"
	CodeQuorumFailed        Code = "quorum_failed"
	CodeSelectionInfeasible Code = "selection_infeasible"
	CodeCertificateTimeout  Code = "certificate_timeout"
	CodePublishFailed       Code = "publish_failed"
	CodeUnverifiable        Code = "unverifiable"
)

// Retryable reports whether an operation that failed with this code may be
// retried with unchanged inputs.
func (c Code) Retryable() bool {
	switch c {
	case CodeTimeout, CodeCertificateTimeout, CodePublishFailed, CodeConflict:
		return true
	}
	return false
}

// Error is a code-carrying domain error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a domain error with a code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err or anything it wraps carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code carried by err, or CodeInternal if none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
