package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	// This is a generic version of the entity-specific not found errors
	// (e.g., ErrLetterNotFound, ErrMemoryNotFound).
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., a second parallel view by the same author).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed is returned when a database transaction fails
	// to commit or when an operation within a transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// Entity-specific "not found" errors

	// ErrUserNotFound indicates that the requested user does not exist in the store.
	ErrUserNotFound = fmt.Errorf("%w: user", ErrNotFound)

	// ErrFamilyNotFound indicates that the requested family does not exist in the store.
	ErrFamilyNotFound = fmt.Errorf("%w: family", ErrNotFound)

	// ErrLetterNotFound indicates that the requested letter does not exist in the store.
	ErrLetterNotFound = fmt.Errorf("%w: letter", ErrNotFound)

	// ErrMemoryNotFound indicates that the requested memory does not exist in the store.
	ErrMemoryNotFound = fmt.Errorf("%w: memory", ErrNotFound)

	// ErrParallelViewNotFound indicates that the requested parallel view does not exist in the store.
	ErrParallelViewNotFound = fmt.Errorf("%w: parallel view", ErrNotFound)

	// ErrResonanceNotFound indicates that no resonance row exists for the
	// requested (user, target) pair.
	ErrResonanceNotFound = fmt.Errorf("%w: resonance", ErrNotFound)

	// Entity-specific "duplicate" errors

	// ErrParallelViewExists indicates that the author already has a
	// parallel view on the memory. This is returned both by the
	// application-level existence check and when the unique constraint
	// on (memory_id, author_id) fires under a concurrent insert.
	ErrParallelViewExists = fmt.Errorf("%w: parallel view", ErrDuplicate)

	// ErrResonanceExists indicates that a resonance row already exists
	// for the (user, target) pair.
	ErrResonanceExists = fmt.Errorf("%w: resonance", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
// This includes the generic ErrNotFound and all entity-specific not found errors.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
// This includes the generic ErrDuplicate and all entity-specific duplicate errors.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "letter", "memory")
	Operation string // The operation that failed (e.g., "create", "update")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
