package graph

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrVertexNotFound = errors.New("vertex not found")
	ErrSelfLoop       = errors.New("self-loops are not allowed")
	ErrTagConflict    = errors.New("vertex already tagged with a different partition")
	ErrEmptyID        = errors.New("empty vertex id")
	ErrMalformedEdge  = errors.New("malformed edge")
)

// Error provides structured error information for graph operations.
type Error struct {
	Op      string // Operation that failed (e.g., "AddEdge", "Extract")
	Entity  string // Entity type ("vertex" or "edge")
	ID      string // Vertex id or edge key
	Cause   error  // Underlying error
	Context string // Additional context
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.ID != "" {
		if e.Context != "" {
			return fmt.Sprintf("%s %s %s (%s): %v", e.Op, e.Entity, e.ID, e.Context, e.Cause)
		}
		return fmt.Sprintf("%s %s %s: %v", e.Op, e.Entity, e.ID, e.Cause)
	}
	if e.Context != "" {
		return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Entity, e.Context, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error's cause.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

// VertexError builds an *Error for a missing or invalid vertex.
func VertexError(op, id string, cause error) error {
	return &Error{Op: op, Entity: "vertex", ID: id, Cause: cause}
}

// EdgeError builds an *Error for an invalid edge.
func EdgeError(op string, e Edge, cause error) error {
	return &Error{Op: op, Entity: "edge", ID: e.Key(), Cause: cause}
}

// IsNotFound reports whether err is a vertex-not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrVertexNotFound)
}
