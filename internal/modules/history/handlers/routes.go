package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all history routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/history", func(r chi.Router) {
		r.Get("/stats/{symbol}", h.HandleGetStats)
		r.Get("/stats/{symbol}/summary", h.HandleGetSummary)
		r.Post("/sync", h.HandleSyncAll)
		r.Post("/sync/{symbol}", h.HandleSyncSymbol)
	})
}
