package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all ledger routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/ledger", func(r chi.Router) {
		// Trade endpoints
		r.Get("/trades", h.HandleGetTrades)
		r.Post("/trades", h.HandleCreateTrade)
		r.Get("/trades/summary", h.HandleGetTradesSummary)
		r.Put("/trades/{id}", h.HandleUpdateTrade)
		r.Delete("/trades/{id}", h.HandleDeleteTrade)

		// Dividend endpoints
		r.Get("/dividends", h.HandleGetDividends)
		r.Post("/dividends", h.HandleCreateDividend)
		r.Put("/dividends/{id}", h.HandleUpdateDividend)
		r.Delete("/dividends/{id}", h.HandleDeleteDividend)

		// Symbol listing
		r.Get("/symbols", h.HandleGetSymbols)
	})
}
