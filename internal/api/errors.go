package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/phrazzld/hearth-api/internal/api/shared"
	"github.com/phrazzld/hearth-api/internal/domain"
	"github.com/phrazzld/hearth-api/internal/service"
	"github.com/phrazzld/hearth-api/internal/service/auth"
	"github.com/phrazzld/hearth-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, service.ErrNotLetterReceiver),
		errors.Is(err, service.ErrNotFamilyMember),
		errors.Is(err, service.ErrReceiverNotFamilyMember),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, service.ErrLetterNotFound),
		errors.Is(err, service.ErrMemoryNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, store.ErrLetterNotFound),
		errors.Is(err, store.ErrMemoryNotFound),
		errors.Is(err, store.ErrParallelViewNotFound),
		errors.Is(err, store.ErrUserNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, service.ErrDuplicateParallelView),
		errors.Is(err, service.ErrOwnMemoryView):
		return http.StatusConflict

	// Temporal errors: the resource exists but is still time-locked
	case errors.Is(err, service.ErrLetterStillSealed):
		return http.StatusLocked

	// Bad request errors
	case errors.Is(err, service.ErrUnlockTimeNotFuture),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrAmbiguousTarget),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	// Handle nil error
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"

	// Authorization errors
	case errors.Is(err, service.ErrNotLetterReceiver):
		return "This letter is addressed to someone else"

	case errors.Is(err, service.ErrNotFamilyMember):
		return "This memory belongs to another family"

	case errors.Is(err, service.ErrOwnMemoryView):
		return "You cannot add a parallel view to your own memory"

	case errors.Is(err, domain.ErrUnauthorized):
		return "Operation not permitted"

	// Not found errors
	case errors.Is(err, service.ErrLetterNotFound), errors.Is(err, store.ErrLetterNotFound):
		return "Letter not found"

	case errors.Is(err, service.ErrMemoryNotFound), errors.Is(err, store.ErrMemoryNotFound):
		return "Memory not found"

	case errors.Is(err, store.ErrParallelViewNotFound):
		return "Parallel view not found"

	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	// Conflict errors
	case errors.Is(err, service.ErrDuplicateParallelView):
		return "You have already added your view to this memory"

	// Temporal errors
	case errors.Is(err, service.ErrLetterStillSealed):
		return "This letter cannot be opened yet"

	// Bad request errors
	case errors.Is(err, service.ErrReceiverNotFamilyMember):
		return "Receiver is not a member of your family"

	case errors.Is(err, service.ErrUnlockTimeNotFuture):
		return "Unlock time must be in the future"

	case errors.Is(err, domain.ErrAmbiguousTarget):
		return "Resonance must target exactly one of memory or parallel view"

	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request data"

	// Default case for unknown errors
	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError maps the error to a status code and safe message and
// writes the response. A non-empty defaultMsg overrides the mapped
// message for 5xx responses where the caller has better context.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	status := MapErrorToStatusCode(err)

	message := GetSafeErrorMessage(err)
	if defaultMsg != "" && status >= http.StatusInternalServerError {
		message = defaultMsg
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		message = fmt.Sprintf("Invalid %s: %s", validationErr.Field, validationErr.Message)
	}

	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Example format: "Key: 'CreateLetterRequest.Content' Error:Field validation for 'Content' failed on the 'required' tag"
	if strings.Contains(errMsg, "Field validation") {
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "url":
		return "invalid URL"
	default:
		return "validation failed"
	}
}
