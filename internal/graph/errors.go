package graph

import (
	"errors"
	"fmt"
)

// StructuralError reports a malformed graph: bad sequence numbering, an
// arity or type violation, a dangling or forward parent reference, or
// inconsistent query indexing. Structural errors are raised only during
// construction and validation and are fatal to that build attempt; a valid
// graph never produces one during stepping.
type StructuralError struct {
	// Code identifies the violation category.
	Code StructuralErrorCode

	// Node is the sequence number of the offending node.
	Node NodeID

	// Message is a human-readable description.
	Message string
}

// StructuralErrorCode categorizes structural errors.
type StructuralErrorCode string

const (
	// ErrCodeSequence indicates sequence numbers are not consecutive from 0.
	ErrCodeSequence StructuralErrorCode = "SEQUENCE_MISMATCH"

	// ErrCodeUnknownOperator indicates an out-of-range operator tag.
	ErrCodeUnknownOperator StructuralErrorCode = "UNKNOWN_OPERATOR"

	// ErrCodeArityMismatch indicates a wrong parent count for an operator.
	ErrCodeArityMismatch StructuralErrorCode = "ARITY_MISMATCH"

	// ErrCodeUnknownReference indicates a parent reference to a node that
	// does not exist or has not been defined yet.
	ErrCodeUnknownReference StructuralErrorCode = "UNKNOWN_REFERENCE"

	// ErrCodeTypeMismatch indicates a parent or declared type disagreement.
	ErrCodeTypeMismatch StructuralErrorCode = "TYPE_MISMATCH"

	// ErrCodeQueryIndex indicates query indices are not consecutive from 0.
	ErrCodeQueryIndex StructuralErrorCode = "QUERY_INDEX"

	// ErrCodeInvalidIndex indicates a malformed INDEX coefficient selector.
	ErrCodeInvalidIndex StructuralErrorCode = "INVALID_INDEX"
)

// Error implements the error interface.
func (e *StructuralError) Error() string {
	if e.Node >= 0 {
		return fmt.Sprintf("%s: %s (node=%d)", e.Code, e.Message, e.Node)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsStructural reports whether err is (or wraps) a StructuralError.
func IsStructural(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}

// IsArityError reports whether err is a structural arity violation.
// Uses errors.As to handle wrapped errors.
func IsArityError(err error) bool {
	var se *StructuralError
	if errors.As(err, &se) {
		return se.Code == ErrCodeArityMismatch
	}
	return false
}

// newStructuralError constructs a StructuralError with a formatted message.
func newStructuralError(code StructuralErrorCode, node NodeID, format string, args ...any) *StructuralError {
	return &StructuralError{
		Code:    code,
		Node:    node,
		Message: fmt.Sprintf(format, args...),
	}
}
