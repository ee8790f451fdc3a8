package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/hearth-api/internal/api"
	"github.com/phrazzld/hearth-api/internal/api/middleware"
	"github.com/phrazzld/hearth-api/internal/api/shared"
)

// setupRouter builds the chi router with the middleware chain and all
// application routes. Every letter and memory route requires a valid
// JWT; /health does not.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.TraceMiddleware)

	authMiddleware := middleware.NewAuthMiddleware(app.jwtService)

	letterHandler := api.NewLetterHandler(app.letterService)
	memoryHandler := api.NewMemoryHandler(app.memoryService, app.viewService, app.resonanceService)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Route("/letters", func(r chi.Router) {
				r.Post("/", letterHandler.CreateLetter)
				r.Get("/pending", letterHandler.GetPendingLetters)
				r.Get("/sent", letterHandler.GetSentLetters)
				r.Get("/opened", letterHandler.GetOpenedLetters)
				r.Get("/years", letterHandler.GetLetterYears)
				r.Post("/{id}/open", letterHandler.OpenLetter)
			})

			r.Route("/memories", func(r chi.Router) {
				r.Post("/", memoryHandler.CreateMemory)
				r.Get("/", memoryHandler.GetMemories)
				r.Get("/year-ago", memoryHandler.GetYearAgoMemories)
				r.Get("/{id}", memoryHandler.GetMemory)
				r.Post("/{id}/views", memoryHandler.AddParallelView)
				r.Post("/{id}/resonance", memoryHandler.ToggleResonance)
				r.Delete("/{id}/resonance", memoryHandler.RemoveResonance)
			})
		})
	})

	return r
}
