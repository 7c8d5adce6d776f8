package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/bimbridge/internal/ir"
)

// OperationError represents an error detected while validating or
// executing a batch.
//
// Operation errors include:
//   - Validation: the request is malformed, nothing was touched
//   - Not found: a target id does not resolve
//   - Unsupported: the element cannot take the requested action
//   - Host mutation: the host refused a mutation
//   - Timeout: the bridge gave up waiting for the host
//
// Per-element errors become FailureRecords; their Message is the reason.
type OperationError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// ElementID identifies the affected element, if any.
	ElementID ir.ElementID

	// Details contains additional context.
	Details map[string]string
}

// ErrorCode categorizes operation errors.
type ErrorCode string

const (
	// ErrCodeValidation rejects the whole batch before any transaction.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeNotFound fails one element; the batch continues.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeUnsupported fails one element that cannot take the action.
	ErrCodeUnsupported ErrorCode = "UNSUPPORTED"

	// ErrCodeHostMutation fails one element the host refused to mutate.
	ErrCodeHostMutation ErrorCode = "HOST_MUTATION"

	// ErrCodeTimeout fails every target; synthesized by the bridge.
	ErrCodeTimeout ErrorCode = "TIMEOUT"

	// ErrCodeUniquenessExhausted marks an identifier that fell back to a
	// random suffix. It never fails the batch.
	ErrCodeUniquenessExhausted ErrorCode = "UNIQUENESS_EXHAUSTED"
)

// Failure reasons shared across handlers and the bridge.
const (
	ReasonNotFound       = "element not found"
	ReasonTimedOut       = "operation timed out"
	ReasonHostNotRunning = "host is not running"
)

// Error implements the error interface.
func (e *OperationError) Error() string {
	if e.ElementID != 0 {
		return fmt.Sprintf("%s: %s (element=%d)", e.Code, e.Message, e.ElementID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func hasCode(err error, code ErrorCode) bool {
	var oe *OperationError
	if errors.As(err, &oe) {
		return oe.Code == code
	}
	return false
}

// IsValidationError returns true if the error rejects the whole batch.
// Uses errors.As to handle wrapped errors.
func IsValidationError(err error) bool { return hasCode(err, ErrCodeValidation) }

// IsNotFoundError returns true if the error is an unresolved element.
func IsNotFoundError(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsUnsupportedError returns true if the element cannot take the action.
func IsUnsupportedError(err error) bool { return hasCode(err, ErrCodeUnsupported) }

// IsHostMutationError returns true if the host refused a mutation.
func IsHostMutationError(err error) bool { return hasCode(err, ErrCodeHostMutation) }

// IsTimeoutError returns true if the bridge timed out.
func IsTimeoutError(err error) bool { return hasCode(err, ErrCodeTimeout) }

// NewValidationError creates an OperationError that rejects the batch.
func NewValidationError(format string, args ...any) *OperationError {
	return &OperationError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewNotFoundError creates an OperationError for an unresolved id.
func NewNotFoundError(id ir.ElementID) *OperationError {
	return &OperationError{
		Code:      ErrCodeNotFound,
		Message:   ReasonNotFound,
		ElementID: id,
	}
}

// NewUnsupportedError creates an OperationError for an element that cannot
// take the requested action.
func NewUnsupportedError(id ir.ElementID, format string, args ...any) *OperationError {
	return &OperationError{
		Code:      ErrCodeUnsupported,
		Message:   fmt.Sprintf(format, args...),
		ElementID: id,
	}
}

// NewHostMutationError wraps an error returned by the host document.
func NewHostMutationError(id ir.ElementID, err error) *OperationError {
	return &OperationError{
		Code:      ErrCodeHostMutation,
		Message:   err.Error(),
		ElementID: id,
	}
}

// NewTimeoutError creates the error the bridge reports when it stops
// waiting for the host.
func NewTimeoutError(after string) *OperationError {
	return &OperationError{
		Code:    ErrCodeTimeout,
		Message: ReasonTimedOut,
		Details: map[string]string{"after": after},
	}
}

// reason extracts the failure reason recorded for err.
func reason(err error) string {
	var oe *OperationError
	if errors.As(err, &oe) {
		return oe.Message
	}
	return err.Error()
}
