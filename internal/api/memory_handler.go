package api

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/phrazzld/hearth-api/internal/api/shared"
	"github.com/phrazzld/hearth-api/internal/domain"
	"github.com/phrazzld/hearth-api/internal/platform/logger"
	"github.com/phrazzld/hearth-api/internal/service"
)

// MemoryHandler handles memory, parallel view, and resonance HTTP requests
type MemoryHandler struct {
	memoryService    service.MemoryService
	viewService      service.ParallelViewService
	resonanceService service.ResonanceService
	validator        *validator.Validate
}

// NewMemoryHandler creates a new MemoryHandler
func NewMemoryHandler(
	memoryService service.MemoryService,
	viewService service.ParallelViewService,
	resonanceService service.ResonanceService,
) *MemoryHandler {
	return &MemoryHandler{
		memoryService:    memoryService,
		viewService:      viewService,
		resonanceService: resonanceService,
		validator:        validator.New(),
	}
}

// CreateMemory handles POST /api/memories requests
func (h *MemoryHandler) CreateMemory(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), slog.Default())

	userID, familyID, ok := requestIdentity(w, r, log)
	if !ok {
		return
	}

	var req CreateMemoryRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	memory, err := h.memoryService.CreateMemory(r.Context(), userID, familyID, service.CreateMemoryInput{
		Type:      domain.MemoryType(req.Type),
		Content:   req.Content,
		Tags:      req.Tags,
		MediaURLs: req.MediaURLs,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create memory")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, memory)
}

// GetMemories handles GET /api/memories requests
func (h *MemoryHandler) GetMemories(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), slog.Default())

	_, familyID, ok := requestIdentity(w, r, log)
	if !ok {
		return
	}

	memories, err := h.memoryService.GetMemories(r.Context(), familyID, pageFromQuery(r))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get memories")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, memories)
}

// GetYearAgoMemories handles GET /api/memories/year-ago requests
func (h *MemoryHandler) GetYearAgoMemories(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), slog.Default())

	_, familyID, ok := requestIdentity(w, r, log)
	if !ok {
		return
	}

	memories, err := h.memoryService.GetYearAgoMemories(r.Context(), familyID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get year-ago memories")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, memories)
}

// GetMemory handles GET /api/memories/{id} requests
func (h *MemoryHandler) GetMemory(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), slog.Default())

	_, familyID, memoryID, ok := requestIdentityAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	memory, err := h.memoryService.GetMemoryByID(r.Context(), memoryID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get memory")
		return
	}

	// Memories never cross family boundaries. A memory from another
	// family reads as not found rather than forbidden.
	if memory.Author != nil && memory.Author.FamilyID != familyID {
		HandleAPIError(w, r, service.ErrMemoryNotFound, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, memory)
}

// AddParallelView handles POST /api/memories/{id}/views requests
func (h *MemoryHandler) AddParallelView(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), slog.Default())

	userID, familyID, memoryID, ok := requestIdentityAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req AddParallelViewRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	view, err := h.viewService.AddParallelView(r.Context(), userID, familyID, memoryID, service.AddParallelViewInput{
		Content: req.Content,
		Images:  req.Images,
		Tags:    req.Tags,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to add parallel view")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, view)
}

// ToggleResonance handles POST /api/memories/{id}/resonance requests
func (h *MemoryHandler) ToggleResonance(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), slog.Default())

	userID, _, memoryID, ok := requestIdentityAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	target, ok := h.resonanceTarget(w, r, memoryID)
	if !ok {
		return
	}

	result, err := h.resonanceService.Toggle(r.Context(), userID, target)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to toggle resonance")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// RemoveResonance handles DELETE /api/memories/{id}/resonance requests
func (h *MemoryHandler) RemoveResonance(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), slog.Default())

	userID, _, memoryID, ok := requestIdentityAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	target, ok := h.resonanceTarget(w, r, memoryID)
	if !ok {
		return
	}

	if err := h.resonanceService.Remove(r.Context(), userID, target); err != nil {
		HandleAPIError(w, r, err, "Failed to remove resonance")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// resonanceTarget resolves the resonance target from an optional
// request body. An empty or absent body targets the memory itself.
func (h *MemoryHandler) resonanceTarget(
	w http.ResponseWriter,
	r *http.Request,
	memoryID uuid.UUID,
) (domain.ResonanceTarget, bool) {
	var req ResonanceRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := shared.DecodeJSON(r, &req); err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
			return domain.ResonanceTarget{}, false
		}
		if err := h.validator.Struct(req); err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
			return domain.ResonanceTarget{}, false
		}
	}

	var viewID *uuid.UUID
	if req.ParallelViewID != "" {
		parsed := uuid.MustParse(req.ParallelViewID) // validated as uuid by the struct tag
		viewID = &parsed
	}

	return domain.ResolveTarget(memoryID, viewID), true
}
