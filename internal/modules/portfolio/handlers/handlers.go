// Package handlers provides HTTP handlers for portfolio valuation.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/yclin/stockfolio/internal/modules/portfolio"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	service *portfolio.Service
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service *portfolio.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleGetOverview handles GET /api/portfolio/overview
func (h *Handler) HandleGetOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.GetOverview()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build portfolio overview")
		http.Error(w, "Failed to build portfolio overview", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": overview,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetPosition handles GET /api/portfolio/positions/{symbol}
func (h *Handler) HandleGetPosition(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	position, err := h.service.GetPosition(symbol)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to value position")
		http.Error(w, "Failed to value position", http.StatusInternalServerError)
		return
	}

	if position == nil {
		http.Error(w, "No trades recorded for symbol", http.StatusNotFound)
		return
	}

	response := map[string]interface{}{
		"data": position,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
