package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers exercise routes on the given router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/exercises", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/{slug}", h.HandleGet)
		r.Post("/{slug}/run", h.HandleRun)
		r.Post("/{slug}/verify", h.HandleVerify)
	})
}
