package engine

import (
	"errors"
	"fmt"

	"github.com/minibayes/minibayes/internal/graph"
)

// RuntimeError represents an error detected while constructing or running
// an inference engine.
//
// Runtime errors include:
//   - No stepper: a latent node no registered stepper can advance
//   - Invalid query: a query whose source is not scalar-valued
//   - Init failed: chain initialization produced an unusable state
//
// RuntimeError includes structured fields for diagnostics.
type RuntimeError struct {
	// Code names the failure category.
	Code RuntimeErrorCode

	// Node is the graph node at fault, -1 when no single node is
	// responsible.
	Node graph.NodeID

	// Message describes the failure for humans.
	Message string

	// Details holds extra key/value context for logging.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeNoStepper indicates a latent node has no applicable stepper.
	ErrCodeNoStepper RuntimeErrorCode = "NO_STEPPER"

	// ErrCodeInvalidQuery indicates a query source that cannot be recorded
	// as a scalar sample column.
	ErrCodeInvalidQuery RuntimeErrorCode = "INVALID_QUERY"

	// ErrCodeInitFailed indicates chain initialization could not produce a
	// usable starting state.
	ErrCodeInitFailed RuntimeErrorCode = "INIT_FAILED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Node >= 0 {
		return fmt.Sprintf("%s: %s (node=%d)", e.Code, e.Message, e.Node)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsNoStepperError returns true if the error reports a latent node without
// an applicable stepper. Uses errors.As to handle wrapped errors.
func IsNoStepperError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeNoStepper
	}
	return false
}

// IsInvalidQueryError returns true if the error reports an unrecordable
// query. Uses errors.As to handle wrapped errors.
func IsInvalidQueryError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeInvalidQuery
	}
	return false
}

// IsInitError returns true if the error reports a failed chain
// initialization. Uses errors.As to handle wrapped errors.
func IsInitError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeInitFailed
	}
	return false
}

// NewNoStepperError creates a RuntimeError for a latent node no stepper
// can advance.
func NewNoStepperError(node graph.NodeID, storage graph.StorageKind, distOp graph.Op) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeNoStepper,
		Node:    node,
		Message: fmt.Sprintf("no applicable stepper for %s latent", storage),
		Details: map[string]string{
			"storage":      storage.String(),
			"distribution": distOp.String(),
		},
	}
}

// NewInvalidQueryError creates a RuntimeError for a query whose source
// cannot be recorded as a scalar column.
func NewInvalidQueryError(node graph.NodeID, queryIndex int, format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidQuery,
		Node:    node,
		Message: fmt.Sprintf(format, args...),
		Details: map[string]string{
			"query_index": fmt.Sprintf("%d", queryIndex),
		},
	}
}

// NewInitError creates a RuntimeError for a failed chain initialization.
func NewInitError(node graph.NodeID, format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInitFailed,
		Node:    node,
		Message: fmt.Sprintf(format, args...),
	}
}
