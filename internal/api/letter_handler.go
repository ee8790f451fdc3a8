package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/phrazzld/hearth-api/internal/api/shared"
	"github.com/phrazzld/hearth-api/internal/platform/logger"
	"github.com/phrazzld/hearth-api/internal/service"
	"github.com/phrazzld/hearth-api/internal/store"
)

// LetterHandler handles letter-related HTTP requests
type LetterHandler struct {
	letterService service.LetterService
	validator     *validator.Validate
}

// NewLetterHandler creates a new LetterHandler
func NewLetterHandler(letterService service.LetterService) *LetterHandler {
	return &LetterHandler{
		letterService: letterService,
		validator:     validator.New(),
	}
}

// CreateLetter handles POST /api/letters requests
func (h *LetterHandler) CreateLetter(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), slog.Default())

	userID, familyID, ok := requestIdentity(w, r, log)
	if !ok {
		return
	}

	var req CreateLetterRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	// Validated as uuid by the struct tag
	receiverID := uuid.MustParse(req.ReceiverID)

	letter, err := h.letterService.CreateLetter(r.Context(), userID, familyID, service.CreateLetterInput{
		ReceiverID: receiverID,
		Content:    req.Content,
		UnlockTime: req.UnlockTime,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create letter")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, letter)
}

// GetPendingLetters handles GET /api/letters/pending requests
func (h *LetterHandler) GetPendingLetters(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), slog.Default())

	userID, _, ok := requestIdentity(w, r, log)
	if !ok {
		return
	}

	letters, err := h.letterService.GetPendingLetters(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get pending letters")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, letters)
}

// OpenLetter handles POST /api/letters/{id}/open requests
func (h *LetterHandler) OpenLetter(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), slog.Default())

	userID, _, letterID, ok := requestIdentityAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	letter, err := h.letterService.OpenLetter(r.Context(), userID, letterID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to open letter")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, letter)
}

// GetSentLetters handles GET /api/letters/sent requests
func (h *LetterHandler) GetSentLetters(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), slog.Default())

	userID, _, ok := requestIdentity(w, r, log)
	if !ok {
		return
	}

	letters, err := h.letterService.GetSentLetters(r.Context(), userID, pageFromQuery(r))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get sent letters")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, letters)
}

// GetOpenedLetters handles GET /api/letters/opened requests.
// An optional year query parameter restricts results to letters
// opened in that year.
func (h *LetterHandler) GetOpenedLetters(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), slog.Default())

	userID, _, ok := requestIdentity(w, r, log)
	if !ok {
		return
	}

	var year *int
	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid year")
			return
		}
		year = &parsed
	}

	letters, err := h.letterService.GetOpenedLetters(r.Context(), userID, year)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get opened letters")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, letters)
}

// GetLetterYears handles GET /api/letters/years requests
func (h *LetterHandler) GetLetterYears(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), slog.Default())

	userID, _, ok := requestIdentity(w, r, log)
	if !ok {
		return
	}

	years, err := h.letterService.GetLetterYears(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get letter years")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, years)
}

// pageFromQuery reads the page and limit query parameters. Missing or
// malformed values fall back to zero, which Normalize clamps to the
// defaults.
func pageFromQuery(r *http.Request) store.Page {
	var page store.Page
	if raw := r.URL.Query().Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			page.Number = n
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			page.Size = n
		}
	}
	return page
}
