package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error reported to the host.
//
// A rejected operation never changes animator state: a rejected keyframe is
// not compiled and leaves the node's track untouched.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Node identifies the affected node, if any.
	Node string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeInvalidConfig indicates an unusable time step or header.
	ErrCodeInvalidConfig RuntimeErrorCode = "INVALID_CONFIG"

	// ErrCodeRejectedUpdate indicates a keyframe that cannot be applied:
	// it starts in the past, ends before it starts, or lacks shapes.
	ErrCodeRejectedUpdate RuntimeErrorCode = "REJECTED_UPDATE"

	// ErrCodeKindMismatch indicates a keyframe whose shape kind differs from
	// the node's kind.
	ErrCodeKindMismatch RuntimeErrorCode = "KIND_MISMATCH"

	// ErrCodeDuplicateNode indicates a node name already in use.
	ErrCodeDuplicateNode RuntimeErrorCode = "DUPLICATE_NODE"

	// ErrCodeInvalidName indicates an empty or reserved node name.
	ErrCodeInvalidName RuntimeErrorCode = "INVALID_NAME"

	// ErrCodeNonMonotonicStep indicates a step back in time.
	ErrCodeNonMonotonicStep RuntimeErrorCode = "NON_MONOTONIC_STEP"

	// ErrCodeLifecycle indicates start/step/stop called out of order.
	ErrCodeLifecycle RuntimeErrorCode = "LIFECYCLE"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Node != "" {
		msg += fmt.Sprintf(" (node=%s)", e.Node)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsRejectedUpdate returns true if the error rejected a keyframe update.
// Uses errors.As to handle wrapped errors.
func IsRejectedUpdate(err error) bool {
	return hasCode(err, ErrCodeRejectedUpdate) || hasCode(err, ErrCodeKindMismatch)
}

// IsConfigError returns true if the error is a configuration error.
func IsConfigError(err error) bool {
	return hasCode(err, ErrCodeInvalidConfig)
}

// IsLifecycleError returns true if start/step/stop were called out of order.
func IsLifecycleError(err error) bool {
	return hasCode(err, ErrCodeLifecycle)
}

// Code returns the RuntimeErrorCode of err, or "" when err is not a
// RuntimeError.
func Code(err error) RuntimeErrorCode {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

func newError(code RuntimeErrorCode, node, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: code, Node: node, Message: fmt.Sprintf(format, args...)}
}

// NewRejectedUpdate creates a RuntimeError for a keyframe outside the
// allowed time window.
func NewRejectedUpdate(node string, t0, t1, now float64) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeRejectedUpdate,
		Message: "keyframe window not in the future",
		Node:    node,
		Details: map[string]string{
			"t0":  fmt.Sprintf("%g", t0),
			"t1":  fmt.Sprintf("%g", t1),
			"now": fmt.Sprintf("%g", now),
		},
	}
}
