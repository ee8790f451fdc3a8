package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/hearth-api/internal/api/shared"
	"github.com/phrazzld/hearth-api/internal/domain"
	"github.com/phrazzld/hearth-api/internal/service"
	"github.com/phrazzld/hearth-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Function-field stubs for the service interfaces. Unset fields panic,
// which makes a handler calling an unexpected operation fail loudly.

type stubLetterService struct {
	createFn     func(ctx context.Context, senderID, familyID uuid.UUID, input service.CreateLetterInput) (*service.EnrichedLetter, error)
	pendingFn    func(ctx context.Context, receiverID uuid.UUID) ([]*service.PendingLetter, error)
	openFn       func(ctx context.Context, userID, letterID uuid.UUID) (*service.EnrichedLetter, error)
	sentFn       func(ctx context.Context, senderID uuid.UUID, page store.Page) (*service.LetterPage, error)
	openedFn     func(ctx context.Context, receiverID uuid.UUID, year *int) ([]*service.EnrichedLetter, error)
	yearsFn      func(ctx context.Context, receiverID uuid.UUID) ([]int, error)
}

func (s *stubLetterService) CreateLetter(ctx context.Context, senderID, familyID uuid.UUID, input service.CreateLetterInput) (*service.EnrichedLetter, error) {
	return s.createFn(ctx, senderID, familyID, input)
}
func (s *stubLetterService) GetPendingLetters(ctx context.Context, receiverID uuid.UUID) ([]*service.PendingLetter, error) {
	return s.pendingFn(ctx, receiverID)
}
func (s *stubLetterService) OpenLetter(ctx context.Context, userID, letterID uuid.UUID) (*service.EnrichedLetter, error) {
	return s.openFn(ctx, userID, letterID)
}
func (s *stubLetterService) GetSentLetters(ctx context.Context, senderID uuid.UUID, page store.Page) (*service.LetterPage, error) {
	return s.sentFn(ctx, senderID, page)
}
func (s *stubLetterService) GetOpenedLetters(ctx context.Context, receiverID uuid.UUID, year *int) ([]*service.EnrichedLetter, error) {
	return s.openedFn(ctx, receiverID, year)
}
func (s *stubLetterService) GetLetterYears(ctx context.Context, receiverID uuid.UUID) ([]int, error) {
	return s.yearsFn(ctx, receiverID)
}

type stubMemoryService struct {
	createFn  func(ctx context.Context, authorID, familyID uuid.UUID, input service.CreateMemoryInput) (*service.FormattedMemory, error)
	listFn    func(ctx context.Context, familyID uuid.UUID, page store.Page) (*service.MemoryPage, error)
	getFn     func(ctx context.Context, id uuid.UUID) (*service.FormattedMemory, error)
	yearAgoFn func(ctx context.Context, familyID uuid.UUID) ([]*service.FormattedMemory, error)
}

func (s *stubMemoryService) CreateMemory(ctx context.Context, authorID, familyID uuid.UUID, input service.CreateMemoryInput) (*service.FormattedMemory, error) {
	return s.createFn(ctx, authorID, familyID, input)
}
func (s *stubMemoryService) GetMemories(ctx context.Context, familyID uuid.UUID, page store.Page) (*service.MemoryPage, error) {
	return s.listFn(ctx, familyID, page)
}
func (s *stubMemoryService) GetMemoryByID(ctx context.Context, id uuid.UUID) (*service.FormattedMemory, error) {
	return s.getFn(ctx, id)
}
func (s *stubMemoryService) GetYearAgoMemories(ctx context.Context, familyID uuid.UUID) ([]*service.FormattedMemory, error) {
	return s.yearAgoFn(ctx, familyID)
}

type stubViewService struct {
	addFn func(ctx context.Context, authorID, familyID, memoryID uuid.UUID, input service.AddParallelViewInput) (*service.FormattedParallelView, error)
}

func (s *stubViewService) AddParallelView(ctx context.Context, authorID, familyID, memoryID uuid.UUID, input service.AddParallelViewInput) (*service.FormattedParallelView, error) {
	return s.addFn(ctx, authorID, familyID, memoryID, input)
}

type stubResonanceService struct {
	toggleFn func(ctx context.Context, userID uuid.UUID, target domain.ResonanceTarget) (*service.ToggleResult, error)
	removeFn func(ctx context.Context, userID uuid.UUID, target domain.ResonanceTarget) error
	hasFn    func(ctx context.Context, userID, memoryID uuid.UUID) (bool, error)
}

func (s *stubResonanceService) Toggle(ctx context.Context, userID uuid.UUID, target domain.ResonanceTarget) (*service.ToggleResult, error) {
	return s.toggleFn(ctx, userID, target)
}
func (s *stubResonanceService) Remove(ctx context.Context, userID uuid.UUID, target domain.ResonanceTarget) error {
	return s.removeFn(ctx, userID, target)
}
func (s *stubResonanceService) Has(ctx context.Context, userID, memoryID uuid.UUID) (bool, error) {
	return s.hasFn(ctx, userID, memoryID)
}

// identity injects an authenticated user into the request context the
// way the auth middleware does.
func identity(userID, familyID uuid.UUID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), shared.UserIDContextKey, userID)
			ctx = context.WithValue(ctx, shared.FamilyIDContextKey, familyID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newLetterRouter(h *LetterHandler, userID, familyID uuid.UUID) chi.Router {
	r := chi.NewRouter()
	r.Use(identity(userID, familyID))
	r.Post("/letters", h.CreateLetter)
	r.Get("/letters/opened", h.GetOpenedLetters)
	r.Post("/letters/{id}/open", h.OpenLetter)
	return r
}

func newMemoryRouter(h *MemoryHandler, userID, familyID uuid.UUID) chi.Router {
	r := chi.NewRouter()
	r.Use(identity(userID, familyID))
	r.Get("/memories/{id}", h.GetMemory)
	r.Post("/memories/{id}/resonance", h.ToggleResonance)
	r.Delete("/memories/{id}/resonance", h.RemoveResonance)
	return r
}

func TestCreateLetterHandler(t *testing.T) {
	userID := uuid.New()
	familyID := uuid.New()
	receiverID := uuid.New()

	t.Run("created", func(t *testing.T) {
		letters := &stubLetterService{
			createFn: func(ctx context.Context, senderID, fID uuid.UUID, input service.CreateLetterInput) (*service.EnrichedLetter, error) {
				assert.Equal(t, userID, senderID)
				assert.Equal(t, familyID, fID)
				assert.Equal(t, receiverID, input.ReceiverID)
				letter, err := domain.NewLetter(senderID, input.ReceiverID, fID, input.Content, input.UnlockTime)
				require.NoError(t, err)
				return &service.EnrichedLetter{Letter: letter}, nil
			},
		}
		router := newLetterRouter(NewLetterHandler(letters), userID, familyID)

		body, _ := json.Marshal(CreateLetterRequest{
			ReceiverID: receiverID.String(),
			Content:    "see you in a year",
			UnlockTime: time.Now().Add(24 * time.Hour),
		})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/letters", bytes.NewReader(body)))

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("malformed json", func(t *testing.T) {
		router := newLetterRouter(NewLetterHandler(&stubLetterService{}), userID, familyID)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/letters", bytes.NewReader([]byte("{"))))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing receiver", func(t *testing.T) {
		router := newLetterRouter(NewLetterHandler(&stubLetterService{}), userID, familyID)

		body, _ := json.Marshal(map[string]any{
			"content":     "no receiver",
			"unlock_time": time.Now().Add(time.Hour),
		})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/letters", bytes.NewReader(body)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("cross-family receiver", func(t *testing.T) {
		letters := &stubLetterService{
			createFn: func(ctx context.Context, senderID, fID uuid.UUID, input service.CreateLetterInput) (*service.EnrichedLetter, error) {
				return nil, service.ErrReceiverNotFamilyMember
			},
		}
		router := newLetterRouter(NewLetterHandler(letters), userID, familyID)

		body, _ := json.Marshal(CreateLetterRequest{
			ReceiverID: receiverID.String(),
			Content:    "hello",
			UnlockTime: time.Now().Add(time.Hour),
		})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/letters", bytes.NewReader(body)))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestOpenLetterHandler(t *testing.T) {
	userID := uuid.New()
	familyID := uuid.New()

	t.Run("still sealed", func(t *testing.T) {
		letters := &stubLetterService{
			openFn: func(ctx context.Context, uID, letterID uuid.UUID) (*service.EnrichedLetter, error) {
				return nil, service.ErrLetterStillSealed
			},
		}
		router := newLetterRouter(NewLetterHandler(letters), userID, familyID)

		w := httptest.NewRecorder()
		url := fmt.Sprintf("/letters/%s/open", uuid.New())
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, url, nil))

		assert.Equal(t, http.StatusLocked, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "This letter cannot be opened yet", body["error"])
	})

	t.Run("malformed id", func(t *testing.T) {
		router := newLetterRouter(NewLetterHandler(&stubLetterService{}), userID, familyID)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/letters/not-a-uuid/open", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetOpenedLettersHandler_InvalidYear(t *testing.T) {
	router := newLetterRouter(NewLetterHandler(&stubLetterService{}), uuid.New(), uuid.New())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/letters/opened?year=abc", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetMemoryHandler_CrossFamilyReadsAsNotFound(t *testing.T) {
	familyID := uuid.New()
	memoryID := uuid.New()

	memories := &stubMemoryService{
		getFn: func(ctx context.Context, id uuid.UUID) (*service.FormattedMemory, error) {
			return &service.FormattedMemory{
				ID:     memoryID,
				Author: &domain.Profile{ID: uuid.New(), FamilyID: uuid.New()},
			}, nil
		},
	}
	handler := NewMemoryHandler(memories, &stubViewService{}, &stubResonanceService{})
	router := newMemoryRouter(handler, uuid.New(), familyID)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/memories/"+memoryID.String(), nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestToggleResonanceHandler(t *testing.T) {
	userID := uuid.New()
	familyID := uuid.New()
	memoryID := uuid.New()

	t.Run("no body targets the memory", func(t *testing.T) {
		var gotTarget domain.ResonanceTarget
		resonances := &stubResonanceService{
			toggleFn: func(ctx context.Context, uID uuid.UUID, target domain.ResonanceTarget) (*service.ToggleResult, error) {
				gotTarget = target
				return &service.ToggleResult{Action: service.ActionAdded, Resonates: true}, nil
			},
		}
		handler := NewMemoryHandler(&stubMemoryService{}, &stubViewService{}, resonances)
		router := newMemoryRouter(handler, userID, familyID)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/memories/"+memoryID.String()+"/resonance", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, gotTarget.MemoryID)
		assert.Equal(t, memoryID, *gotTarget.MemoryID)
		assert.Nil(t, gotTarget.ParallelViewID)
	})

	t.Run("body with view id targets the view", func(t *testing.T) {
		viewID := uuid.New()
		var gotTarget domain.ResonanceTarget
		resonances := &stubResonanceService{
			toggleFn: func(ctx context.Context, uID uuid.UUID, target domain.ResonanceTarget) (*service.ToggleResult, error) {
				gotTarget = target
				return &service.ToggleResult{Action: service.ActionRemoved, Resonates: false}, nil
			},
		}
		handler := NewMemoryHandler(&stubMemoryService{}, &stubViewService{}, resonances)
		router := newMemoryRouter(handler, userID, familyID)

		body, _ := json.Marshal(ResonanceRequest{ParallelViewID: viewID.String()})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/memories/"+memoryID.String()+"/resonance", bytes.NewReader(body)))

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, gotTarget.ParallelViewID)
		assert.Equal(t, viewID, *gotTarget.ParallelViewID)
		assert.Nil(t, gotTarget.MemoryID)
	})
}

func TestRemoveResonanceHandler(t *testing.T) {
	memoryID := uuid.New()
	resonances := &stubResonanceService{
		removeFn: func(ctx context.Context, userID uuid.UUID, target domain.ResonanceTarget) error {
			return nil
		},
	}
	handler := NewMemoryHandler(&stubMemoryService{}, &stubViewService{}, resonances)
	router := newMemoryRouter(handler, uuid.New(), uuid.New())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/memories/"+memoryID.String()+"/resonance", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHandlers_MissingIdentity(t *testing.T) {
	// No identity middleware: context carries no user.
	r := chi.NewRouter()
	handler := NewLetterHandler(&stubLetterService{})
	r.Get("/letters/pending", handler.GetPendingLetters)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/letters/pending", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
}
