package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio", func(r chi.Router) {
		r.Get("/overview", h.HandleGetOverview)
		r.Get("/positions/{symbol}", h.HandleGetPosition)
	})
}
