// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrPubNotFound indicates a pub was not found by the given identifier.
	ErrPubNotFound = errors.New("pub not found")

	// ErrActionInstanceNotFound indicates an action instance was not found.
	ErrActionInstanceNotFound = errors.New("action instance not found")

	// ErrAutomationNotFound indicates an automation was not found.
	ErrAutomationNotFound = errors.New("automation not found")

	// ErrActionRunNotFound indicates an action run was not found.
	ErrActionRunNotFound = errors.New("action run not found")

	// ErrSerializationFailure indicates a serializable transaction lost a
	// concurrency race and may be retried by the caller.
	ErrSerializationFailure = errors.New("transaction serialization failure")
)

// StoreError wraps storage errors with operation context.
type StoreError struct {
	Op     string // Operation being performed (e.g., "GetByID", "Save")
	Entity string // Entity kind (e.g., "automation", "pub")
	ID     string // Entity ID if applicable
	Err    error  // Underlying error
}

func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
	}

	return fmt.Sprintf("%s operation failed for %s: %v", e.Op, e.Entity, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStoreError creates a new store error with context.
func NewStoreError(op, entity, id string, err error) *StoreError {
	return &StoreError{Op: op, Entity: entity, ID: id, Err: err}
}

// IsPubNotFound checks if an error indicates a pub was not found.
func IsPubNotFound(err error) bool {
	return errors.Is(err, ErrPubNotFound)
}

// IsActionInstanceNotFound checks if an error indicates an action instance was not found.
func IsActionInstanceNotFound(err error) bool {
	return errors.Is(err, ErrActionInstanceNotFound)
}

// IsAutomationNotFound checks if an error indicates an automation was not found.
func IsAutomationNotFound(err error) bool {
	return errors.Is(err, ErrAutomationNotFound)
}

// IsActionRunNotFound checks if an error indicates an action run was not found.
func IsActionRunNotFound(err error) bool {
	return errors.Is(err, ErrActionRunNotFound)
}

// IsSerializationFailure checks if an error indicates a lost concurrency race.
func IsSerializationFailure(err error) bool {
	return errors.Is(err, ErrSerializationFailure)
}
