// internal/core/domain/errors.go
package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ValidationError carries every violation detected in one pass so the caller
// can surface all problems at once instead of fixing them one by one.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Violations, "; "))
}

// NewValidationError returns nil when there are no violations.
func NewValidationError(violations []string) error {
	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}

// InsufficientStockError is an expected business outcome, not a fault. The
// message must state product, available and requested quantities.
type InsufficientStockError struct {
	ProductID uuid.UUID
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

// NotFoundError signals that a referenced entity does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// StateConflictError signals an illegal lifecycle transition. Transitions out
// of a terminal state fail with this, never silently no-op.
type StateConflictError struct {
	Resource string
	ID       string
	Current  string
	Attempt  string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("%s %s is %s: cannot %s", e.Resource, e.ID, e.Current, e.Attempt)
}

// InfrastructureError wraps persistence-layer failures. It is the only error
// class safe to retry with backoff; all others require changing the input.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error {
	return e.Err
}
