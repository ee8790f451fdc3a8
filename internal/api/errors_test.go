package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/hearth-api/internal/domain"
	"github.com/phrazzld/hearth-api/internal/service"
	"github.com/phrazzld/hearth-api/internal/service/auth"
	"github.com/phrazzld/hearth-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized},
		{"invalid token", auth.ErrInvalidToken, http.StatusUnauthorized},
		{"not letter receiver", service.ErrNotLetterReceiver, http.StatusForbidden},
		{"not family member", service.ErrNotFamilyMember, http.StatusForbidden},
		{"receiver not family member", service.ErrReceiverNotFamilyMember, http.StatusForbidden},
		{"letter not found", service.ErrLetterNotFound, http.StatusNotFound},
		{"memory not found", service.ErrMemoryNotFound, http.StatusNotFound},
		{"store letter not found", store.ErrLetterNotFound, http.StatusNotFound},
		{"duplicate parallel view", service.ErrDuplicateParallelView, http.StatusConflict},
		{"own memory view", service.ErrOwnMemoryView, http.StatusConflict},
		{"still sealed", service.ErrLetterStillSealed, http.StatusLocked},
		{"unlock time not future", service.ErrUnlockTimeNotFuture, http.StatusBadRequest},
		{"ambiguous target", domain.ErrAmbiguousTarget, http.StatusBadRequest},
		{"invalid entity", store.ErrInvalidEntity, http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapErrorToStatusCode(tt.err))
		})
	}
}

func TestMapErrorToStatusCode_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("opening letter: %w", service.ErrLetterStillSealed)
	assert.Equal(t, http.StatusLocked, MapErrorToStatusCode(wrapped))
}

func TestGetSafeErrorMessage(t *testing.T) {
	assert.Equal(t, "This letter cannot be opened yet", GetSafeErrorMessage(service.ErrLetterStillSealed))
	assert.Equal(t, "You have already added your view to this memory", GetSafeErrorMessage(service.ErrDuplicateParallelView))
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(errors.New("pq: connection refused")))
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
}

func TestHandleAPIError(t *testing.T) {
	t.Run("maps sentinel to status and safe message", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/letters/abc/open", nil)

		HandleAPIError(w, r, service.ErrLetterStillSealed, "Failed to open letter")

		assert.Equal(t, http.StatusLocked, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "This letter cannot be opened yet", body["error"])
	})

	t.Run("default message only overrides 5xx", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/letters", nil)

		HandleAPIError(w, r, errors.New("driver: bad connection"), "Failed to create letter")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "Failed to create letter", body["error"])
	})

	t.Run("validation error carries the field", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/memories/not-a-uuid", nil)

		err := domain.NewValidationError("id", "must be a valid UUID", domain.ErrInvalidID)
		HandleAPIError(w, r, err, "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "Invalid id: must be a valid UUID", body["error"])
	})
}

func TestSanitizeValidationError(t *testing.T) {
	err := errors.New("Key: 'CreateLetterRequest.Content' Error:Field validation for 'Content' failed on the 'required' tag")
	assert.Equal(t, "Invalid Content: required field", SanitizeValidationError(err))

	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("something else entirely")))
}
