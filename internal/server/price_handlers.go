package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/yclin/stockfolio/internal/clients/finmind"
)

// PriceHandlers exposes live quotes from the market data client.
type PriceHandlers struct {
	quotes *finmind.Client
	log    zerolog.Logger
}

// NewPriceHandlers creates a new PriceHandlers
func NewPriceHandlers(quotes *finmind.Client, log zerolog.Logger) *PriceHandlers {
	return &PriceHandlers{
		quotes: quotes,
		log:    log.With().Str("component", "price_handlers").Logger(),
	}
}

// RegisterRoutes registers price routes
func (h *PriceHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/prices", func(r chi.Router) {
		r.Get("/{symbol}", h.HandleGetQuote)
	})
}

// HandleGetQuote returns the latest quote for a symbol. A symbol with no
// price data returns a null quote rather than an error.
func (h *PriceHandlers) HandleGetQuote(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	quote, err := h.quotes.GetQuote(symbol)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get quote")
		h.writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error": "quote unavailable",
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"symbol": symbol,
			"quote":  quote,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *PriceHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
