// Package service implements the application's business operations on
// top of the store interfaces: the letter lifecycle, memory creation
// and retrieval, the parallel view registry, and the resonance ledger.
package service

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the services. These form the stable
// failure taxonomy the API layer maps onto HTTP status codes:
// validation, authorization, not-found, conflict, and temporal
// failures. Anything else is an infrastructure failure.
var (
	// ErrLetterNotFound indicates that the letter does not exist.
	ErrLetterNotFound = errors.New("letter not found")

	// ErrMemoryNotFound indicates that the memory does not exist.
	ErrMemoryNotFound = errors.New("memory not found")

	// ErrUserNotFound indicates that the user does not resolve in the directory.
	ErrUserNotFound = errors.New("user not found")

	// ErrReceiverNotFamilyMember is returned when a letter's receiver
	// does not belong to the sender's family (or does not exist).
	ErrReceiverNotFamilyMember = errors.New("receiver is not a family member")

	// ErrUnlockTimeNotFuture is returned when a letter's unlock time
	// is not strictly in the future at creation time.
	ErrUnlockTimeNotFuture = errors.New("unlock time must be in the future")

	// ErrNotLetterReceiver is returned when someone other than the
	// receiver attempts to open a letter.
	ErrNotLetterReceiver = errors.New("letter is addressed to someone else")

	// ErrLetterStillSealed is returned when an open is attempted
	// before the letter's unlock time has elapsed.
	ErrLetterStillSealed = errors.New("letter is not yet unlockable")

	// ErrNotFamilyMember is returned when a user acts on another
	// family's memory.
	ErrNotFamilyMember = errors.New("user is not a member of this family")

	// ErrOwnMemoryView is returned when a memory's author attempts to
	// add a parallel view to their own memory.
	ErrOwnMemoryView = errors.New("cannot add a parallel view to your own memory")

	// ErrDuplicateParallelView is returned when the author already has
	// a parallel view on the memory.
	ErrDuplicateParallelView = errors.New("parallel view already exists for this memory")
)

// ServiceError wraps errors from the services with operation context.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "create_letter", "toggle_resonance")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
// Service sentinel errors pass through unwrapped so callers can match
// them with errors.Is without digging.
func NewServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	for _, sentinel := range []error{
		ErrLetterNotFound,
		ErrMemoryNotFound,
		ErrUserNotFound,
		ErrReceiverNotFamilyMember,
		ErrUnlockTimeNotFuture,
		ErrNotLetterReceiver,
		ErrLetterStillSealed,
		ErrNotFamilyMember,
		ErrOwnMemoryView,
		ErrDuplicateParallelView,
	} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}

	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
