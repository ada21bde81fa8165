package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates the control API router. When the handler has no API
// key configured, auth is skipped; the agent binds to localhost only.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			if h.apiKey != "" {
				r.Use(AuthMiddleware(h.apiKey))
			}

			r.Get("/status", h.Status)
			r.Post("/sync", h.ForceSync)
			r.Get("/stats", h.Stats)

			r.Get("/export", h.Export)
			r.Post("/import", h.Import)
			r.Post("/maintenance/prune", h.Prune)
			r.Delete("/data", h.ClearAll)

			r.Put("/records/{kind}", h.PutRecord)
			r.Get("/records/{kind}", h.ListRecords)
			r.Get("/records/{kind}/{id}", h.GetRecord)
			r.Delete("/records/pet/{id}", h.DeletePet)
		})
	})

	return r
}
