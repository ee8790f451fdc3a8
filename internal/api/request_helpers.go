package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/hearth-api/internal/api/shared"
	"github.com/phrazzld/hearth-api/internal/domain"
	"github.com/phrazzld/hearth-api/internal/platform/logger"
)

// getUserIDFromContext extracts the authenticated user's UUID from the request context.
// The user ID is expected to be placed in the context by the authentication middleware.
func getUserIDFromContext(r *http.Request) (uuid.UUID, bool) {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, false
	}
	return userID, true
}

// getFamilyIDFromContext extracts the authenticated user's family
// scope from the request context.
func getFamilyIDFromContext(r *http.Request) (uuid.UUID, bool) {
	familyID, ok := r.Context().Value(shared.FamilyIDContextKey).(uuid.UUID)
	if !ok || familyID == uuid.Nil {
		return uuid.Nil, false
	}
	return familyID, true
}

// getPathUUID extracts a UUID from the URL path parameters.
// It parses and validates the UUID, handling common error cases.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, domain.NewValidationError(paramName, "is required", domain.ErrValidation)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(paramName, "has invalid format", domain.ErrInvalidID)
	}

	return id, nil
}

// requestIdentity extracts the caller's user and family IDs from the
// request context. It writes an error response and returns false if
// either is missing.
func requestIdentity(
	w http.ResponseWriter,
	r *http.Request,
	log *slog.Logger,
) (userID, familyID uuid.UUID, ok bool) {
	if log == nil {
		log = logger.FromContextOrDefault(r.Context(), slog.Default())
	}

	userID, ok = getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized, "User ID not found or invalid")
		return uuid.Nil, uuid.Nil, false
	}

	familyID, ok = getFamilyIDFromContext(r)
	if !ok {
		log.Warn("family ID not found or invalid in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized, "Family ID not found or invalid")
		return uuid.Nil, uuid.Nil, false
	}

	return userID, familyID, true
}

// requestIdentityAndPathUUID is a composite helper that extracts the
// caller's identity and a UUID from the path parameters. It writes an
// error response if any extraction fails.
func requestIdentityAndPathUUID(
	w http.ResponseWriter,
	r *http.Request,
	paramName string,
	log *slog.Logger,
) (userID, familyID, pathID uuid.UUID, ok bool) {
	userID, familyID, ok = requestIdentity(w, r, log)
	if !ok {
		return uuid.Nil, uuid.Nil, uuid.Nil, false
	}

	pathID, err := getPathUUID(r, paramName)
	if err != nil {
		if log == nil {
			log = logger.FromContextOrDefault(r.Context(), slog.Default())
		}
		log.Warn("invalid "+paramName,
			slog.String("param_name", paramName),
			slog.String("value", chi.URLParam(r, paramName)))
		HandleAPIError(w, r, err, "")
		return uuid.Nil, uuid.Nil, uuid.Nil, false
	}

	return userID, familyID, pathID, true
}
